package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"leaseflow/internal/common/aws"
	"leaseflow/internal/common/config"
	"leaseflow/internal/common/database"
	"leaseflow/internal/common/logger"
	"leaseflow/internal/common/observability"
	"leaseflow/internal/lifecycle"
	"leaseflow/internal/notifier"
	"leaseflow/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger.With(zap.String("service", cfg.App.Name)))

	log.Info("starting lifecycle service", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	var tracing *observability.Tracing
	if cfg.Tracing.Enabled {
		tracing, err = observability.NewTracing(cfg.App.Name, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			log.Error("tracing disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer tracing.Shutdown()
		}
	}

	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		log.Error("postgres unavailable, giving up", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()

	rd, err := connectRedis(ctx, cfg, log)
	if err != nil {
		log.Error("redis unavailable, giving up", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer rd.Close()

	repo := repository.NewPostgres(pg, log)
	cachedRepo := repository.NewCached(repo, rd.Client, cfg.Database.Redis.CacheTTL, log)

	queue, err := buildNotifier(ctx, cfg, repo, log)
	if err != nil {
		log.Error("failed to build notifier", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	queue.Start()
	defer queue.Stop()

	engine := lifecycle.New(cachedRepo, queue, log,
		lifecycle.WithExpiryConcurrency(cfg.Lifecycle.ExpiryConcurrency))

	metricsServer := startMetricsServer(cfg, pg, rd, log)
	defer shutdownServer(metricsServer, log)

	// The sweep must finish before the deferred queue.Stop runs: a draft
	// withdrawn mid-shutdown still enqueues its notification.
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runExpirySweep(ctx, cfg, engine, obs, log)
	}()
	defer func() { <-sweepDone }()

	<-ctx.Done()
	log.Info("shutdown signal received", nil)
}

// connectPostgres dials the database with capped exponential backoff so
// the service survives a slower-starting database in the same deploy.
func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	var client *database.PostgresClient
	err := retryWithBackoff(ctx, 5, 2*time.Second, func() error {
		c, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	}, log, "postgres")
	return client, err
}

func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.RedisClient, error) {
	var client *database.RedisClient
	err := retryWithBackoff(ctx, 5, 2*time.Second, func() error {
		c, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	}, log, "redis")
	return client, err
}

func retryWithBackoff(ctx context.Context, attempts int, initial time.Duration, fn func() error, log logger.Logger, name string) error {
	delay := initial
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn("connection attempt failed, retrying", map[string]interface{}{
			"target":  name,
			"attempt": i,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func buildNotifier(ctx context.Context, cfg *config.Config, store notifier.Store, log logger.Logger) (*notifier.Queue, error) {
	var email notifier.EmailSender
	var sms notifier.SMSSender

	if cfg.Notifications.Email.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create ses client: %w", err)
		}
		email = client
	}
	if cfg.Notifications.SMS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create sns client: %w", err)
		}
		sms = client
	}

	return notifier.NewQueue(store, email, sms, notifier.Config{
		QueueSize:    cfg.Notifications.QueueSize,
		Workers:      cfg.Notifications.Workers,
		EmailEnabled: cfg.Notifications.Email.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
	}, log), nil
}

func startMetricsServer(cfg *config.Config, pg *database.PostgresClient, rd *database.RedisClient, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			http.Error(w, "postgres unreachable", http.StatusServiceUnavailable)
			return
		}
		if err := rd.Ping(ctx); err != nil {
			http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.Metrics.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics server listening", map[string]interface{}{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	return server
}

func shutdownServer(server *http.Server, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("metrics server shutdown", map[string]interface{}{"error": err.Error()})
	}
}

// runExpirySweep periodically withdraws drafts older than the configured
// maximum age. One sweep runs immediately on startup so a long-stopped
// service catches up without waiting a full interval.
func runExpirySweep(ctx context.Context, cfg *config.Config, engine *lifecycle.Orchestrator, obs *observability.Observability, log logger.Logger) {
	interval := config.GetDuration(cfg.Lifecycle.ExpirySweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		start := time.Now()
		expired, err := engine.ExpireStaleDrafts(ctx, cfg.Lifecycle.MaxDraftAgeDays)
		obs.RecordOperation(ctx, "expire_stale_drafts", time.Since(start), err == nil)
		if err != nil {
			log.Error("expiry sweep failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if expired > 0 {
			log.Info("expiry sweep withdrew stale drafts", map[string]interface{}{"count": expired})
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
