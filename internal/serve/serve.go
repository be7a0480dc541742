package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	supporthttp "github.com/stellar/go/support/http"
	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httphandler"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/middleware"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

const ServiceID = "serve"

// Ingress rate limit, applied per client IP.
const (
	rateLimitRequests = 120
	rateLimitWindow   = 1 * time.Minute
)

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	MonitorService     monitor.MonitorServiceInterface
	DatabaseDSN        string
	DBPoolConfig       db.DBPoolConfig
	dbConnectionPool   db.DBConnectionPool
	Models             *data.Models
	CorsAllowedOrigins []string
	CrashTrackerClient crashtracker.CrashTrackerClient
	EnableScheduler    bool

	programService      services.BenefitProgramServiceInterface
	envelopeService     services.DisbursementEnvelopeServiceInterface
	disbursementService services.DisbursementServiceInterface
	statementService    services.AccountStatementServiceInterface
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	// Setup crash tracker:
	// Call crash tracker FlushEvents to flush buffered events before the server terminates
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	// Call crash tracker Recover for recover from unhandled panics
	defer opts.CrashTrackerClient.Recover()
	// Set crash tracker LogAndReportErrors as DefaultReportErrorFunc
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	// Setup Database:
	dbConnectionPool, err := db.OpenDBConnectionPoolWithMetricsAndConfig(context.Background(), opts.DatabaseDSN, opts.MonitorService, opts.DBPoolConfig)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	opts.Models, err = data.NewModels(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating models for Serve: %w", err)
	}
	opts.dbConnectionPool = dbConnectionPool

	// Setup domain services:
	opts.programService = services.NewBenefitProgramService(opts.Models)
	opts.envelopeService = services.NewDisbursementEnvelopeService(opts.Models, opts.programService)
	opts.disbursementService = services.NewDisbursementService(opts.Models)
	opts.statementService = services.NewAccountStatementService(opts.Models)

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting G2P Bridge Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the database connection...")
			err := opts.dbConnectionPool.Close()
			if err != nil {
				log.Errorf("error closing database connection: %s", err.Error())
			}

			log.Info("Stopping G2P Bridge Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	mux.Use(middleware.RateLimitMiddleware(rateLimitRequests, rateLimitWindow))

	envelopeHandler := httphandler.DisbursementEnvelopeHandler{EnvelopeService: o.envelopeService}
	mux.Post("/disbursement_envelope", envelopeHandler.PostDisbursementEnvelope)
	mux.Post("/disbursement_envelope/cancel", envelopeHandler.CancelDisbursementEnvelope)

	disbursementHandler := httphandler.DisbursementHandler{
		Models:              o.Models,
		MonitorService:      o.MonitorService,
		DisbursementService: o.disbursementService,
	}
	mux.Post("/create_disbursements", disbursementHandler.PostCreateDisbursements)
	mux.Post("/cancel_disbursements", disbursementHandler.PostCancelDisbursements)

	mux.Post("/upload_mt940", httphandler.AccountStatementHandler{
		StatementService: o.statementService,
		MonitorService:   o.MonitorService,
	}.PostUploadStatement)

	mux.Get("/disbursement_recon/export", httphandler.DisbursementReconHandler{Models: o.Models}.ExportDisbursementRecons)

	programHandler := httphandler.BenefitProgramConfigurationHandler{ProgramService: o.programService}
	mux.Route("/benefit_program_configurations", func(r chi.Router) {
		r.Get("/", programHandler.GetBenefitProgramConfigurations)
		r.Post("/", programHandler.PostBenefitProgramConfiguration)
	})

	mux.Get("/health", httphandler.HealthHandler{
		ReleaseID:        o.GitCommit,
		ServiceID:        ServiceID,
		Version:          o.Version,
		DBConnectionPool: o.dbConnectionPool,
	}.ServeHTTP)

	return mux
}
