// @title           OP Pipeline API
// @version         1.0.0
// @description     Backend for the production order (OP) pipeline. Uploaded OP documents are read,
// @description     their fields extracted into jobs, and jobs are moved through the production stages.
// @description     Job changes are streamed to clients as Server-Sent Events.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/config"
	"op-pipeline-backend/internal/database"
	"op-pipeline-backend/internal/handlers"
	"op-pipeline-backend/internal/logging"
	"op-pipeline-backend/internal/middleware"
	"op-pipeline-backend/internal/pdftext"
	"op-pipeline-backend/internal/repository"
	"op-pipeline-backend/internal/services"
	"op-pipeline-backend/internal/shutdown"
	"op-pipeline-backend/internal/stages"
	"op-pipeline-backend/internal/supabase"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// run owns every deferred cleanup so main exits only after they ran.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.AuthEnabled() {
		logger.Warn("auth.disabled", "reason", "SUPABASE_JWT_SECRET not set")
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("store.open_failed", "err", err)
		return err
	}
	defer closeStore()

	seq, err := cfg.Sequence()
	if err != nil {
		logger.Error("stages.invalid", "err", err)
		return err
	}
	machine, err := stages.NewMachine(seq, stages.WithPolicy(cfg.Policy()))
	if err != nil {
		logger.Error("stages.invalid", "err", err)
		return err
	}

	events := supabase.NewRealtimeClient()
	repo := repository.New(store, events)

	var opts []services.JobServiceOption
	if cfg.StorageEnabled() {
		storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
		if err != nil {
			logger.Error("storage.init_failed", "err", err)
			return err
		}
		opts = append(opts, services.WithDocumentStorage(storageClient))
	} else {
		logger.Warn("storage.disabled", "reason", "SUPABASE_URL not set, uploaded documents are not kept")
	}

	reader := pdftext.NewReader(pdftext.Config{MaxPages: cfg.PDFMaxPages})
	jobService := services.NewJobService(repo, machine, reader, logger, opts...)
	exportService := services.NewExportService(jobService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	handlers.RegisterRoutes(router, cfg, handlers.Handlers{
		Jobs:   handlers.NewJobsHandler(jobService),
		Upload: handlers.NewUploadHandler(jobService, cfg.MaxUploadBytes()),
		Export: handlers.NewExportHandler(exportService),
		Events: handlers.NewEventsHandler(repo, 25*time.Second),
		Stages: handlers.NewStagesHandler(machine),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open event streams never finish on their own; end them so Shutdown can drain.
	srv.RegisterOnShutdown(events.Close)

	logger.Info("server.start", "port", cfg.Port, "environment", cfg.Environment, "stages", seq.Stages)
	err = shutdown.Serve(
		context.Background(),
		[]os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP},
		srv,
		10*time.Second,
		logger,
	)
	if err != nil {
		logger.Error("server.failed", "err", err)
		return err
	}
	logger.Info("server.stopped")
	return nil
}

// openStore picks the job store: direct Postgres when DATABASE_URL is set
// (migrations first), PostgREST when only Supabase is configured, memory
// otherwise.
func openStore(cfg *config.Config, logger *logging.Logger) (repository.JobStore, func(), error) {
	if cfg.DatabaseURL != "" {
		migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		err = migrator.Run()
		_ = migrator.Close()
		if err != nil {
			return nil, nil, err
		}

		db, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store.selected", "store", "postgres")
		return db, func() { _ = db.Close() }, nil
	}

	if cfg.StorageEnabled() {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store.selected", "store", "postgrest")
		return supabase.NewRestClient(client), func() {}, nil
	}

	logger.Warn("store.selected", "store", "memory", "reason", "no DATABASE_URL or SUPABASE_URL, jobs are lost on restart")
	return repository.NewMemoryStore(), func() {}, nil
}
