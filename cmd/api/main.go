package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/opportunity-sync/docs"
	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/ghl"
	"github.com/straye-as/opportunity-sync/internal/http/handler"
	"github.com/straye-as/opportunity-sync/internal/http/middleware"
	"github.com/straye-as/opportunity-sync/internal/http/router"
	"github.com/straye-as/opportunity-sync/internal/jobs"
	"github.com/straye-as/opportunity-sync/internal/logger"
	"github.com/straye-as/opportunity-sync/internal/progress"
	"github.com/straye-as/opportunity-sync/internal/retrier"
	"github.com/straye-as/opportunity-sync/internal/service"
	"github.com/straye-as/opportunity-sync/internal/stages"
	"github.com/straye-as/opportunity-sync/internal/storage"
	"go.uber.org/zap"
)

// @title Opportunity Sync API
// @version 1.0
// @description Matches child account opportunities to master account opportunities and syncs stages and values to the master
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1/opportunity-sync

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.Server.PublicHost != "" {
		docs.SwaggerInfo.Host = basicCfg.Server.PublicHost
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Account API keys come from SUBACCOUNTS and, outside development,
	// may be overridden from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	keys := service.AccountKeys(cfg.AccountAPIKeys())
	if len(keys) == 0 {
		log.Warn("No accounts configured; sync runs will fail for every record")
	}

	archive, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Result archive initialized", zap.String("mode", cfg.Storage.Mode))

	policy := retrier.New(&cfg.Retry, log)
	client := ghl.NewClient(&cfg.GHL, log)
	paginator := ghl.NewPaginator(&cfg.GHL, policy, log)

	matchings := progress.NewStore[domain.MatchingOperation]()
	syncs := progress.NewStore[domain.SyncOperation]()

	matchingService := service.NewMatchingService(&cfg.Matching, matchings, log)
	syncService := service.NewSyncService(client, keys, stages.NewResolver(log), policy, syncs, archive, &cfg.Sync, log)
	loader := service.NewOpportunityLoader(client, paginator, policy, keys, &cfg.GHL, log)

	rt := router.NewRouter(
		cfg,
		log,
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		handler.NewOpportunitySyncHandler(matchingService, syncService, loader, cfg.Server.MaxBodyMB<<20, log),
		handler.NewHealthHandler(cfg.App.Name, len(keys), matchings, syncs),
	)

	// Finished operations are kept until exit unless a retention is configured
	var scheduler *jobs.Scheduler
	if retention := cfg.Progress.RetentionDuration(); retention > 0 {
		scheduler = jobs.NewScheduler(log)
		pruneJob := jobs.NewProgressPruneJob(map[string]jobs.Pruner{
			"matching": matchings,
			"sync":     syncs,
		}, retention, log)
		if err := scheduler.AddJob(jobs.ProgressPruneJobName, cfg.Progress.PruneCron, func() { pruneJob.Run() }); err != nil {
			return fmt.Errorf("failed to register prune job: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Progress pruning disabled; operations are kept until exit")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Running matching passes finish on their own; sync runs lose their
		// outbound calls and count the remaining records as errors
		matchingService.Wait()
		if err := syncService.Shutdown(ctx); err != nil {
			log.Warn("Sync runs still active at shutdown", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
