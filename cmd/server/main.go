package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apptracking "github.com/fbstrack/backend/internal/application/tracking"
	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/domain/tracking"
	"github.com/fbstrack/backend/internal/infrastructure/config"
	"github.com/fbstrack/backend/internal/infrastructure/logger"
	"github.com/fbstrack/backend/internal/infrastructure/marketplace"
	"github.com/fbstrack/backend/internal/infrastructure/persistence"
	"github.com/fbstrack/backend/internal/infrastructure/scheduler"
	"github.com/fbstrack/backend/internal/infrastructure/synclock"
	"github.com/fbstrack/backend/internal/infrastructure/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FBS order tracker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx := context.Background()

	// Initialize telemetry providers
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          zapcore.InfoLevel,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	credsRepo := persistence.NewGormCredentialsRepository(db.DB)

	// Initialize marketplace connectors
	wbConfig := marketplace.NewWildberriesConfig()
	wbConfig.APIBaseURL = cfg.Wildberries.APIBaseURL
	wbConfig.StatsBaseURL = cfg.Wildberries.StatsBaseURL
	wbConfig.TimeoutSeconds = cfg.Wildberries.TimeoutSeconds
	wbConfig.WindowDays = cfg.Wildberries.WindowDays
	wbConfig.PageLimit = cfg.Wildberries.PageLimit
	wbConfig.MaxPages = cfg.Wildberries.MaxPages
	wbAdapter, err := marketplace.NewWildberriesAdapter(wbConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize Wildberries adapter", zap.Error(err))
	}

	ozonConfig := marketplace.NewOzonConfig()
	ozonConfig.APIBaseURL = cfg.Ozon.APIBaseURL
	ozonConfig.TimeoutSeconds = cfg.Ozon.TimeoutSeconds
	ozonConfig.WindowDays = cfg.Ozon.WindowDays
	ozonConfig.PageLimit = cfg.Ozon.PageLimit
	ozonConfig.MaxPages = cfg.Ozon.MaxPages
	ozonAdapter, err := marketplace.NewOzonAdapter(ozonConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize Ozon adapter", zap.Error(err))
	}

	connectors := []integration.Connector{wbAdapter, ozonAdapter}

	// Initialize the run lock
	var locker apptracking.Locker
	if cfg.Sync.UseRedisLock {
		redisLocker, err := synclock.NewRedisLocker(synclock.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Sync.LockKey, cfg.Sync.LockTTL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisLocker.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		locker = redisLocker
		log.Info("Using Redis sync lock", zap.String("key", cfg.Sync.LockKey))
	} else {
		locker = synclock.NewInMemoryLocker()
	}

	// Initialize sync metrics
	syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:         meterProvider.Meter(cfg.App.Name),
		Logger:        log,
		StatsProvider: &orderStatsProvider{repo: orderRepo},
	})
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}
	syncMetrics.StartPeriodicCollection(ctx, 5*time.Minute)
	defer syncMetrics.Stop()

	// Initialize application services
	reconciler := apptracking.NewReconciler(log)
	syncService := apptracking.NewSyncService(orderRepo, credsRepo, connectors, reconciler, locker, log)
	syncService.SetSyncMetrics(syncMetrics)

	// Start the periodic sync trigger
	if cfg.Sync.Enabled {
		trigger := scheduler.NewSyncTrigger(scheduler.SyncTriggerConfig{
			Interval:   cfg.Sync.Interval,
			RunTimeout: cfg.Sync.RunTimeout,
		}, syncService, syncMetrics, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync trigger", zap.Error(err))
			}
		}()
	} else {
		log.Info("Periodic sync disabled")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")
}

// orderStatsProvider feeds the order status gauge from the repository.
type orderStatsProvider struct {
	repo tracking.OrderRepository
}

func (p *orderStatsProvider) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	summary, err := p.repo.Summarize(ctx, nil, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(summary.ByStatus))
	for _, entry := range summary.ByStatus {
		counts[entry.Status.String()] = entry.Count
	}
	return counts, nil
}
