package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

const fundsBlockJobName = "funds_block_job"

// fundsBlockJob is a job that periodically reserves the funds of envelopes whose
// availability the sponsor bank has already confirmed.
type fundsBlockJob struct {
	service            services.FundsBlockServiceInterface
	jobIntervalSeconds int
}

type FundsBlockJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	ConnectorFactory   *bank.ConnectorFactory
	ProgramService     services.BenefitProgramServiceInterface
	AlertsDispatcher   alerts.DispatcherInterface
	MaxAttempts        int
}

func NewFundsBlockJob(opts FundsBlockJobOptions) Job {
	if opts.JobIntervalSeconds < DefaultMinimumJobIntervalSeconds {
		log.Fatalf("job interval is not set for %s. Instantiation failed", fundsBlockJobName)
	}

	return &fundsBlockJob{
		service: services.NewFundsBlockService(services.FundsBlockServiceOptions{
			Models:           opts.Models,
			ConnectorFactory: opts.ConnectorFactory,
			ProgramService:   opts.ProgramService,
			AlertsDispatcher: opts.AlertsDispatcher,
			MaxAttempts:      opts.MaxAttempts,
		}),
		jobIntervalSeconds: opts.JobIntervalSeconds,
	}
}

func (d fundsBlockJob) GetInterval() time.Duration {
	if d.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", d.GetName(), DefaultMinimumJobIntervalSeconds)
		return DefaultMinimumJobIntervalSeconds * time.Second
	}
	return time.Duration(d.jobIntervalSeconds) * time.Second
}

func (d fundsBlockJob) GetName() string {
	return fundsBlockJobName
}

func (d fundsBlockJob) Execute(ctx context.Context) error {
	if err := d.service.BlockEligibleEnvelopes(ctx); err != nil {
		return fmt.Errorf("executing fundsBlockJob: %w", err)
	}
	return nil
}

var _ Job = (*fundsBlockJob)(nil)
