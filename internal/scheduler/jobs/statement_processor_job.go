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

const statementProcessorJobName = "statement_processor_job"

// statementProcessorJob is a job that periodically parses uploaded MT940 account statements
// and reconciles their debit entries against dispatched disbursements.
type statementProcessorJob struct {
	service            services.StatementProcessorServiceInterface
	jobIntervalSeconds int
}

type StatementProcessorJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	ConnectorFactory   *bank.ConnectorFactory
	ProgramService     services.BenefitProgramServiceInterface
	AlertsDispatcher   alerts.DispatcherInterface
	MaxAttempts        int
	StatementCurrency  string
}

func NewStatementProcessorJob(opts StatementProcessorJobOptions) Job {
	if opts.JobIntervalSeconds < DefaultMinimumJobIntervalSeconds {
		log.Fatalf("job interval is not set for %s. Instantiation failed", statementProcessorJobName)
	}

	return &statementProcessorJob{
		service: services.NewStatementProcessorService(services.StatementProcessorServiceOptions{
			Models:            opts.Models,
			ConnectorFactory:  opts.ConnectorFactory,
			ProgramService:    opts.ProgramService,
			AlertsDispatcher:  opts.AlertsDispatcher,
			MaxAttempts:       opts.MaxAttempts,
			StatementCurrency: opts.StatementCurrency,
		}),
		jobIntervalSeconds: opts.JobIntervalSeconds,
	}
}

func (d statementProcessorJob) GetInterval() time.Duration {
	if d.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", d.GetName(), DefaultMinimumJobIntervalSeconds)
		return DefaultMinimumJobIntervalSeconds * time.Second
	}
	return time.Duration(d.jobIntervalSeconds) * time.Second
}

func (d statementProcessorJob) GetName() string {
	return statementProcessorJobName
}

func (d statementProcessorJob) Execute(ctx context.Context) error {
	if err := d.service.ProcessEligibleStatements(ctx); err != nil {
		return fmt.Errorf("executing statementProcessorJob: %w", err)
	}
	return nil
}

var _ Job = (*statementProcessorJob)(nil)
