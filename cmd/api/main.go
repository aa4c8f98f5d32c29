package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/catering-backend/api/routes"
	"github.com/angelmondragon/catering-backend/internal/agent"
	"github.com/angelmondragon/catering-backend/internal/cron"
	"github.com/angelmondragon/catering-backend/internal/inventory"
	"github.com/angelmondragon/catering-backend/pkg/config"
	"github.com/angelmondragon/catering-backend/pkg/db"
	"github.com/angelmondragon/catering-backend/pkg/logger"
	"github.com/angelmondragon/catering-backend/pkg/metrics"
	"github.com/angelmondragon/catering-backend/pkg/migrate"
	"github.com/angelmondragon/catering-backend/pkg/redis"
	"github.com/angelmondragon/catering-backend/pkg/toolgateway"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to prepare schema", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured, idempotency keys disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	gateway := toolgateway.NewClient(
		toolgateway.WithEndpoint(cfg.ToolGateway.URL),
		toolgateway.WithTimeout(cfg.ToolGateway.Timeout),
		toolgateway.WithClientName(cfg.ToolGateway.ClientName),
		toolgateway.WithMetrics(workflowMetrics),
	)
	tools := toolgateway.NewTools(gateway)

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	orchestrator, err := agent.NewOrchestrator(agent.OrchestratorParams{
		Logger:  logg,
		Tools:   tools,
		Metrics: workflowMetrics,
		Defaults: agent.Defaults{
			ServiceType: cfg.Agent.DefaultServiceType,
			SMTPServer:  cfg.Agent.SMTPServer,
			SMTPPort:    cfg.Agent.SMTPPort,
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create workflow orchestrator", err)
		os.Exit(1)
	}

	sweeper, err := newUploadSweeper(cfg, logg, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create upload sweeper", err)
		os.Exit(1)
	}
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "upload sweeper stopped", err)
		}
	}()

	addr := cfg.App.ListenAddr()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"tool_gateway": cfg.ToolGateway.URL,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, inventoryService, orchestrator, tools),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case runErr = <-serveErr:
		logg.Error(ctx, "api server stopped unexpectedly", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closeErr := server.Shutdown(shutdownCtx)
	closeErr = multierr.Append(closeErr, gateway.Close())
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
	}

	if runErr != nil || closeErr != nil {
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// newUploadSweeper schedules removal of orphaned multipart uploads. The redis
// lock keeps instances sharing an upload volume from sweeping concurrently.
func newUploadSweeper(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client) (*cron.Service, error) {
	job, err := cron.NewUploadSweepJob(cron.UploadSweepJobParams{
		Logger:    logg,
		Dir:       cfg.Agent.UploadDir,
		Retention: cfg.Agent.UploadRetention,
	})
	if err != nil {
		return nil, err
	}

	var lock cron.Lock
	if redisClient != nil {
		lock, err = cron.NewRedisLock(redisClient, "catering:cron:"+cron.UploadSweepJobName, cfg.Agent.UploadSweepInterval)
		if err != nil {
			return nil, err
		}
	}

	registry, err := cron.NewRegistry(job)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Interval: cfg.Agent.UploadSweepInterval,
	})
}
