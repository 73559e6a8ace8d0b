package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"hoteldesk/internal/api"
	"hoteldesk/internal/audit"
	"hoteldesk/internal/billing"
	"hoteldesk/internal/config"
	"hoteldesk/internal/database"
	"hoteldesk/internal/domain"
	"hoteldesk/internal/events"
	"hoteldesk/internal/export"
	"hoteldesk/internal/google"
	"hoteldesk/internal/logging"
	"hoteldesk/internal/metrics"
	"hoteldesk/internal/notify"
	"hoteldesk/internal/repository"
	"hoteldesk/internal/service"
	"hoteldesk/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	readinessInterval = 15 * time.Second
	memorySweepEvery  = time.Minute
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

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	loc := cfg.Billing.Location()
	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetLocation(loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := events.NewEventBus(logging.Component(&logger, "events"))

	recorder := audit.Connect(ctx, cfg.Audit, logging.Component(&logger, "audit"))
	defer recorder.Close()
	recorder.Subscribe(eventBus)

	initNotifier(cfg, eventBus, &logger)

	redisClient := initRedis(ctx, cfg, &logger)
	defer func() { _ = repository.Close(redisClient) }()

	memory := repository.NewMemoryStore()
	go sweepMemory(ctx, memory)

	var limits domain.RateLimitStore = memory
	if redisClient != nil {
		limits = repository.NewFailoverStore(repository.NewRedisStore(redisClient), memory, logging.Component(&logger, "rate_limit"))
	}

	pipeline := buildPipeline(cfg, db, redisClient, loc, &logger)

	sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, loc, &logger)
	var syncWorker domain.SyncWorker
	var syncAdmin api.SyncAdmin
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
		syncAdmin = sheetsWorker
	}

	bookings := service.NewBookingService(db, pipeline, eventBus, syncWorker, service.FineDefaults{
		FinePerHour:        cfg.Billing.FinePerHour,
		GracePeriodMinutes: cfg.Billing.GracePeriodMinutes,
	}, loc, logging.Component(&logger, "bookings"))
	bookings.UseCategories(db)
	inspections := service.NewInspectionService(db, db, eventBus, logging.Component(&logger, "inspections"))
	inventory := service.NewInventoryService(db, eventBus, logging.Component(&logger, "inventory"))
	orders := service.NewOrderService(db, db, db, eventBus, logging.Component(&logger, "orders"))
	categories := service.NewCategoryService(db, logging.Component(&logger, "categories"))
	exporter := export.NewExporter(cfg.Exports.Path, loc, logging.Component(&logger, "export"))

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, only background workers will run")
		<-ctx.Done()
		return nil
	}

	grpcServer, err := api.NewGRPCServer(&cfg.API, db, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}
	go grpcServer.WatchReadiness(ctx, readinessInterval)

	httpServer := api.NewHTTPServer(cfg.API, cfg.RateLimits, api.Deps{
		Bookings:    bookings,
		Inspections: inspections,
		Inventory:   inventory,
		Orders:      orders,
		Categories:  categories,
		Exporter:    exporter,
		Sync:        syncAdmin,
		Limits:      limits,
		Ready:       db,
		Location:    loc,
	}, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	dirs := []string{filepath.Dir(cfg.Database.Path), cfg.Exports.Path}
	if cfg.Backup.Enabled && cfg.Backup.StoragePath != "" {
		dirs = append(dirs, cfg.Backup.StoragePath)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("create directory")
			return err
		}
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		// the failover store and scan sequencer cover for redis later on
		logger.Warn().Err(err).Msg("redis ping failed at startup")
		return client
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func sweepMemory(ctx context.Context, memory *repository.MemoryStore) {
	ticker := time.NewTicker(memorySweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			memory.Sweep()
		}
	}
}

func buildPipeline(
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	loc *time.Location,
	logger *zerolog.Logger,
) *billing.Pipeline {
	codes := billing.NewCodeAllocator(db, cfg.Billing.CodeAttempts)
	scan := billing.NewScanSequencer(db, cfg.Billing.InvoicePrefix, loc)

	var invoices billing.InvoiceSequencer = scan
	// config validation guarantees redis for the counter sequencer
	if cfg.Billing.Sequencer == "counter" && redisClient != nil {
		invoices = billing.NewCounterSequencer(repository.NewRedisStore(redisClient), scan, logging.Component(logger, "invoices"))
	}
	logger.Info().Str("sequencer", cfg.Billing.Sequencer).Str("prefix", cfg.Billing.InvoicePrefix).Msg("billing configured")

	return billing.NewPipeline(codes, invoices, cfg.Billing.InsertRetries, logging.Component(logger, "billing"))
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	bot, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	if bot == nil {
		return
	}
	notifier := notify.NewNotifier(bot, cfg.Telegram.ManagerChats, logging.Component(logger, "telegram"))
	notifier.Subscribe(bus)
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.ManagerChats)).Msg("telegram notifications enabled")
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	loc *time.Location,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		logger.Info().Msg("google sheets not configured, sync disabled")
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID, loc)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		if email, emailErr := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
			logger.Warn().Err(err).Str("share_with", email).Msg("google sheets unreachable, check sharing")
		} else {
			logger.Warn().Err(err).Msg("google sheets unreachable")
		}
		return nil
	}
	go sheets.StartCacheRefresh(ctx, cfg.Google.CacheRefresh)

	retryPolicy := worker.RetryPolicy{
		MaxRetries:   cfg.Google.SyncRetry.MaxRetries,
		InitialDelay: cfg.Google.SyncRetry.InitialDelay,
		MaxDelay:     cfg.Google.SyncRetry.MaxDelay,
	}
	w := worker.NewSheetsWorker(db, sheets, db, redisClient, retryPolicy, logger)
	go w.Start(ctx)

	logger.Info().Msg("google sheets sync started")
	return w
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if cfg.API.GRPC.Enabled {
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

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
