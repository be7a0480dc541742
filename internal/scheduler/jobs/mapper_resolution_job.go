package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/mapper"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

const mapperResolutionJobName = "mapper_resolution_job"

// mapperResolutionJob is a job that periodically resolves beneficiary IDs into financial
// addresses through the ID mapper, for batches whose envelope funds are already blocked.
type mapperResolutionJob struct {
	service            services.MapperResolutionServiceInterface
	jobIntervalSeconds int
}

type MapperResolutionJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	ResolveClient      mapper.ResolveClientInterface
	Deconstructor      *mapper.Deconstructor
	AlertsDispatcher   alerts.DispatcherInterface
	MaxAttempts        int
}

func NewMapperResolutionJob(opts MapperResolutionJobOptions) Job {
	if opts.JobIntervalSeconds < DefaultMinimumJobIntervalSeconds {
		log.Fatalf("job interval is not set for %s. Instantiation failed", mapperResolutionJobName)
	}

	return &mapperResolutionJob{
		service: services.NewMapperResolutionService(services.MapperResolutionServiceOptions{
			Models:           opts.Models,
			ResolveClient:    opts.ResolveClient,
			Deconstructor:    opts.Deconstructor,
			AlertsDispatcher: opts.AlertsDispatcher,
			MaxAttempts:      opts.MaxAttempts,
		}),
		jobIntervalSeconds: opts.JobIntervalSeconds,
	}
}

func (d mapperResolutionJob) GetInterval() time.Duration {
	if d.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", d.GetName(), DefaultMinimumJobIntervalSeconds)
		return DefaultMinimumJobIntervalSeconds * time.Second
	}
	return time.Duration(d.jobIntervalSeconds) * time.Second
}

func (d mapperResolutionJob) GetName() string {
	return mapperResolutionJobName
}

func (d mapperResolutionJob) Execute(ctx context.Context) error {
	if err := d.service.ResolveEligibleBatches(ctx); err != nil {
		return fmt.Errorf("executing mapperResolutionJob: %w", err)
	}
	return nil
}

var _ Job = (*mapperResolutionJob)(nil)
