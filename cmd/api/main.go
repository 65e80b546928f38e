package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roombook/internal/api"
	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/logging"
	"roombook/internal/metrics"
	"roombook/internal/repository"
	"roombook/internal/service"
	"roombook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	coordinator := initCoordinator(cfg, redisClient, logger)

	settings, err := service.SettingsFromConfig(cfg.Booking)
	if err != nil {
		return fmt.Errorf("booking settings: %w", err)
	}

	bus := events.NewEventBus()
	bus.OnError(func(e *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", e.Type).Msg("event handler failed")
	})
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.ObserveEvents(bus)
	}

	svc := buildServices(db, coordinator, bus, settings, logger)

	releaseWorker := worker.NewAutoReleaseWorker(svc.Releaser, coordinator, cfg.AutoRelease, logging.Component(logger, "auto-release"))
	releaseWorker.Start(ctx)
	defer releaseWorker.Stop()

	backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backups.Start(ctx)

	startMetrics(ctx, cfg, logger)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config; running background workers only")
		<-ctx.Done()
		return nil
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, svc, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}
	httpServer := api.NewHTTPServer(cfg.API, svc, logger)

	return startServers(ctx, grpcServer, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database.Path, cfg.Database.BusyTimeout, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SyncRooms(ctx, cfg.Rooms); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sync room catalog: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-process coordination")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initCoordinator(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.Coordinator {
	memory := repository.NewMemoryCoordinator()
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisCoordinator(redisClient, cfg.Redis.KeyPrefix)
	return repository.NewFailoverCoordinator(primary, memory, logging.Component(logger, "coordinator"))
}

func buildServices(
	db *database.DB,
	coordinator domain.Coordinator,
	bus *events.EventBus,
	settings service.Settings,
	logger *zerolog.Logger,
) api.Services {
	return api.Services{
		Rooms:     service.NewRoomService(db, logging.Component(logger, "rooms")),
		Calendar:  service.NewCalendarService(db, settings, logging.Component(logger, "calendar")),
		Bookings:  service.NewBookingService(db, coordinator, bus, settings, logging.Component(logger, "bookings")),
		CheckIns:  service.NewCheckInService(db, bus, settings, logging.Component(logger, "checkin")),
		Releaser:  service.NewAutoReleaseService(db, bus, settings, logging.Component(logger, "auto-release")),
		Analytics: service.NewAnalyticsService(db, settings, logging.Component(logger, "analytics")),
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("grpc shutdown incomplete")
		}
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
