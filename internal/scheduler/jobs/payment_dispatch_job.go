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

const paymentDispatchJobName = "payment_dispatch_job"

// paymentDispatchJob is a job that periodically hands resolved disbursement batches to the
// sponsor bank for payment.
type paymentDispatchJob struct {
	service            services.PaymentDispatchServiceInterface
	jobIntervalSeconds int
}

type PaymentDispatchJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	ConnectorFactory   *bank.ConnectorFactory
	ProgramService     services.BenefitProgramServiceInterface
	AlertsDispatcher   alerts.DispatcherInterface
	MaxAttempts        int
}

func NewPaymentDispatchJob(opts PaymentDispatchJobOptions) Job {
	if opts.JobIntervalSeconds < DefaultMinimumJobIntervalSeconds {
		log.Fatalf("job interval is not set for %s. Instantiation failed", paymentDispatchJobName)
	}

	return &paymentDispatchJob{
		service: services.NewPaymentDispatchService(services.PaymentDispatchServiceOptions{
			Models:           opts.Models,
			ConnectorFactory: opts.ConnectorFactory,
			ProgramService:   opts.ProgramService,
			AlertsDispatcher: opts.AlertsDispatcher,
			MaxAttempts:      opts.MaxAttempts,
		}),
		jobIntervalSeconds: opts.JobIntervalSeconds,
	}
}

func (d paymentDispatchJob) GetInterval() time.Duration {
	if d.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", d.GetName(), DefaultMinimumJobIntervalSeconds)
		return DefaultMinimumJobIntervalSeconds * time.Second
	}
	return time.Duration(d.jobIntervalSeconds) * time.Second
}

func (d paymentDispatchJob) GetName() string {
	return paymentDispatchJobName
}

func (d paymentDispatchJob) Execute(ctx context.Context) error {
	if err := d.service.DispatchEligibleBatches(ctx); err != nil {
		return fmt.Errorf("executing paymentDispatchJob: %w", err)
	}
	return nil
}

var _ Job = (*paymentDispatchJob)(nil)
