package cmd

import (
	"context"
	"fmt"
	"go/types"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go/support/config"
	"github.com/stellar/go/support/log"

	cmdUtils "github.com/openg2p/g2p-bridge-backend/cmd/utils"
	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/mapper"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/scheduler"
	"github.com/openg2p/g2p-bridge-backend/internal/scheduler/jobs"
	"github.com/openg2p/g2p-bridge-backend/internal/serve"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
	GetSchedulerJobRegistrars(ctx context.Context, databaseURL string, pipelineOpts cmdUtils.PipelineOptions, alertsDispatcher alerts.DispatcherInterface, monitorService monitor.MonitorServiceInterface) ([]scheduler.SchedulerJobRegisterOption, error)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

// GetSchedulerJobRegistrars builds the five pipeline jobs: the four stage
// producers plus the statement processor. Each job gets its own models handle
// over a shared connection pool; the connector factory, resolve client and FA
// deconstructor are built once and shared.
func (s *ServerService) GetSchedulerJobRegistrars(ctx context.Context, databaseURL string, pipelineOpts cmdUtils.PipelineOptions, alertsDispatcher alerts.DispatcherInterface, monitorService monitor.MonitorServiceInterface) ([]scheduler.SchedulerJobRegisterOption, error) {
	dbConnectionPool, err := db.OpenDBConnectionPool(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening DB connection pool for the job scheduler: %w", err)
	}
	models, err := data.NewModels(dbConnectionPool)
	if err != nil {
		return nil, fmt.Errorf("creating models for the job scheduler: %w", err)
	}

	requestTimeout := time.Duration(pipelineOpts.BankRequestTimeoutSeconds) * time.Second
	exampleBankConnector := bank.NewExampleBankConnector(pipelineOpts.ExampleBankBaseURL, requestTimeout)
	exampleBankConnector.MonitorService = monitorService
	connectorFactory := bank.NewConnectorFactory(map[string]bank.ConnectorInterface{
		bank.ExampleBankCode: exampleBankConnector,
	})

	deconstructor, err := mapper.NewDeconstructor(pipelineOpts.DeconstructStrategies())
	if err != nil {
		return nil, fmt.Errorf("compiling FA deconstruction strategies: %w", err)
	}
	resolveClient := mapper.NewResolveClient(pipelineOpts.MapperResolveAPIURL, requestTimeout)

	programService := services.NewBenefitProgramService(models)

	return []scheduler.SchedulerJobRegisterOption{
		scheduler.WithFundsAvailabilityJobOption(jobs.FundsAvailabilityJobOptions{
			JobIntervalSeconds: pipelineOpts.FundsAvailableCheckPeriodSeconds,
			Models:             models,
			ConnectorFactory:   connectorFactory,
			ProgramService:     programService,
			AlertsDispatcher:   alertsDispatcher,
			MaxAttempts:        pipelineOpts.FundsAvailableCheckAttempts,
		}),
		scheduler.WithFundsBlockJobOption(jobs.FundsBlockJobOptions{
			JobIntervalSeconds: pipelineOpts.FundsBlockedPeriodSeconds,
			Models:             models,
			ConnectorFactory:   connectorFactory,
			ProgramService:     programService,
			AlertsDispatcher:   alertsDispatcher,
			MaxAttempts:        pipelineOpts.FundsBlockedAttempts,
		}),
		scheduler.WithMapperResolutionJobOption(jobs.MapperResolutionJobOptions{
			JobIntervalSeconds: pipelineOpts.MapperResolvePeriodSeconds,
			Models:             models,
			ResolveClient:      resolveClient,
			Deconstructor:      deconstructor,
			AlertsDispatcher:   alertsDispatcher,
			MaxAttempts:        pipelineOpts.MapperResolveAttempts,
		}),
		scheduler.WithPaymentDispatchJobOption(jobs.PaymentDispatchJobOptions{
			JobIntervalSeconds: pipelineOpts.FundsDisbursementPeriodSeconds,
			Models:             models,
			ConnectorFactory:   connectorFactory,
			ProgramService:     programService,
			AlertsDispatcher:   alertsDispatcher,
			MaxAttempts:        pipelineOpts.FundsDisbursementAttempts,
		}),
		scheduler.WithStatementProcessorJobOption(jobs.StatementProcessorJobOptions{
			JobIntervalSeconds: pipelineOpts.StatementProcessPeriodSeconds,
			Models:             models,
			ConnectorFactory:   connectorFactory,
			ProgramService:     programService,
			AlertsDispatcher:   alertsDispatcher,
			MaxAttempts:        pipelineOpts.StatementProcessAttempts,
			StatementCurrency:  pipelineOpts.StatementCurrency,
		}),
	}, nil
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	pipelineOpts := cmdUtils.PipelineOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port the bridge API server listens on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Comma-separated list of origins allowed to call the API endpoints`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			FlagDefault:    "http://localhost:3000",
			Required:       true,
		},
		{
			Name:        "enable-scheduler",
			Usage:       "Enable the background pipeline scheduler inside the serve process",
			OptType:     types.Bool,
			ConfigKey:   &serveOpts.EnableScheduler,
			FlagDefault: true,
			Required:    false,
		},
	}

	// DB connection pool options
	dbPoolOpts := cmdUtils.DBPoolOptions{}
	configOpts = append(configOpts, cmdUtils.DBPoolConfigOptions(&dbPoolOpts)...)

	// crash tracker options
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}
	configOpts = append(configOpts, cmdUtils.CrashTrackerTypeConfigOption(&crashTrackerOptions.CrashTrackerType))

	// metrics server options
	metricsServeOpts := serve.MetricsServeOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "metrics-type",
			Usage:          `Metrics backend type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		&config.ConfigOption{
			Name:        "metrics-port",
			Usage:       "Port the metrics endpoint listens on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		})

	// pipeline options
	configOpts = append(configOpts, cmdUtils.PipelineConfigOptions(&pipelineOpts)...)

	// alerts messenger options
	messengerOptions := alerts.MessengerOptions{}
	var alertsEmail, alertsPhoneNumber string
	configOpts = append(configOpts, cmdUtils.AlertsConfigOptions(&messengerOptions, &alertsEmail, &alertsPhoneNumber)...)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the G2P Bridge API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			err := monitorService.Start(monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			})
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)

			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.DatabaseDSN = globalOptions.DatabaseURL
			serveOpts.DBPoolConfig = dbPoolOpts.ToConfig()
			serveOpts.Version = globalOptions.Version
			serveOpts.MonitorService = monitorService

			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			messengerClient, err := alerts.GetClient(messengerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating alerts messenger client: %s", err.Error())
			}
			alertsDispatcher, err := alerts.NewDispatcher(messengerClient, alertsEmail, alertsPhoneNumber)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating alerts dispatcher: %s", err.Error())
			}

			// The pipeline scheduler runs in-process alongside the API server
			// unless disabled.
			if serveOpts.EnableScheduler {
				log.Ctx(ctx).Info("Starting Scheduler Service...")
				schedulerJobRegistrars, innerErr := serverService.GetSchedulerJobRegistrars(ctx, globalOptions.DatabaseURL, pipelineOpts, alertsDispatcher, monitorService)
				if innerErr != nil {
					log.Ctx(ctx).Fatalf("Error getting scheduler job registrars: %v", innerErr)
				}
				go scheduler.StartScheduler(crashTrackerClient.Clone(), monitorService, schedulerJobRegistrars...)
			} else {
				log.Ctx(ctx).Warn("Scheduler Service is disabled.")
			}

			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			log.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
