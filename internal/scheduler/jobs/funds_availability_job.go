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

const fundsAvailabilityJobName = "funds_availability_job"

// fundsAvailabilityJob is a job that periodically asks each sponsor bank whether the funds
// announced by fully received envelopes are available on the program's sponsor account.
type fundsAvailabilityJob struct {
	service            services.FundsAvailabilityServiceInterface
	jobIntervalSeconds int
}

type FundsAvailabilityJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	ConnectorFactory   *bank.ConnectorFactory
	ProgramService     services.BenefitProgramServiceInterface
	AlertsDispatcher   alerts.DispatcherInterface
	MaxAttempts        int
}

func NewFundsAvailabilityJob(opts FundsAvailabilityJobOptions) Job {
	if opts.JobIntervalSeconds < DefaultMinimumJobIntervalSeconds {
		log.Fatalf("job interval is not set for %s. Instantiation failed", fundsAvailabilityJobName)
	}

	return &fundsAvailabilityJob{
		service: services.NewFundsAvailabilityService(services.FundsAvailabilityServiceOptions{
			Models:           opts.Models,
			ConnectorFactory: opts.ConnectorFactory,
			ProgramService:   opts.ProgramService,
			AlertsDispatcher: opts.AlertsDispatcher,
			MaxAttempts:      opts.MaxAttempts,
		}),
		jobIntervalSeconds: opts.JobIntervalSeconds,
	}
}

func (d fundsAvailabilityJob) GetInterval() time.Duration {
	if d.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", d.GetName(), DefaultMinimumJobIntervalSeconds)
		return DefaultMinimumJobIntervalSeconds * time.Second
	}
	return time.Duration(d.jobIntervalSeconds) * time.Second
}

func (d fundsAvailabilityJob) GetName() string {
	return fundsAvailabilityJobName
}

func (d fundsAvailabilityJob) Execute(ctx context.Context) error {
	if err := d.service.CheckEligibleEnvelopes(ctx); err != nil {
		return fmt.Errorf("executing fundsAvailabilityJob: %w", err)
	}
	return nil
}

var _ Job = (*fundsAvailabilityJob)(nil)
