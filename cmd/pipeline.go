package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go/support/config"
	"github.com/stellar/go/support/log"

	cmdUtils "github.com/openg2p/g2p-bridge-backend/cmd/utils"
	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/scheduler"
	"github.com/openg2p/g2p-bridge-backend/internal/serve"
)

// PipelineCommand runs the stage pipeline scheduler without the ingress API.
// It is the deployment shape for operators who scale the API and the pipeline
// independently; `serve --enable-scheduler` covers the single-process shape.
type PipelineCommand struct{}

func (c *PipelineCommand) Command(monitorService monitor.MonitorServiceInterface) *cobra.Command {
	pipelineOpts := cmdUtils.PipelineOptions{}

	configOpts := config.ConfigOptions{}
	configOpts = append(configOpts, cmdUtils.PipelineConfigOptions(&pipelineOpts)...)

	// crash tracker options
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}
	configOpts = append(configOpts, cmdUtils.CrashTrackerTypeConfigOption(&crashTrackerOptions.CrashTrackerType))

	// metrics server options
	metricsServeOpts := serve.MetricsServeOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		&config.ConfigOption{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		})

	// alerts messenger options
	messengerOptions := alerts.MessengerOptions{}
	var alertsEmail, alertsPhoneNumber string
	configOpts = append(configOpts, cmdUtils.AlertsConfigOptions(&messengerOptions, &alertsEmail, &alertsPhoneNumber)...)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the G2P Bridge stage pipeline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			err = monitorService.Start(monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			})
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)
			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}

			messengerClient, err := alerts.GetClient(messengerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating alerts messenger client: %s", err.Error())
			}
			alertsDispatcher, err := alerts.NewDispatcher(messengerClient, alertsEmail, alertsPhoneNumber)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating alerts dispatcher: %s", err.Error())
			}

			serverService := ServerService{}
			schedulerJobRegistrars, err := serverService.GetSchedulerJobRegistrars(ctx, globalOptions.DatabaseURL, pipelineOpts, alertsDispatcher, monitorService)
			if err != nil {
				log.Ctx(ctx).Fatalf("Error getting scheduler job registrars: %v", err)
			}

			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			log.Ctx(ctx).Info("Starting Pipeline Scheduler...")
			scheduler.StartScheduler(crashTrackerClient, monitorService, schedulerJobRegistrars...)
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
