package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zanara/internal/api"
	"zanara/internal/config"
	"zanara/internal/database"
	"zanara/internal/domain"
	"zanara/internal/events"
	"zanara/internal/google"
	"zanara/internal/logging"
	"zanara/internal/metrics"
	"zanara/internal/models"
	"zanara/internal/notify"
	"zanara/internal/repository"
	"zanara/internal/service"
	"zanara/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, catalog, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateRepo := initStateRepository(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	notifier := initNotifier(cfg, &logger)
	notifyWorker := worker.NewNotifyWorker(db, notifier, redisClient, worker.RetryPolicy{}, &logger)
	notifyWorker.SetPolling(time.Duration(cfg.Notifications.PollInterval)*time.Second, cfg.Notifications.BatchSize)
	go notifyWorker.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeMetricEvents(eventBus, &logger)

	connectionService := service.NewConnectionService(db, eventBus, notifyWorker, &logger)
	bookingService := service.NewBookingService(db, eventBus, notifyWorker, stateRepo, catalog, &logger)
	userService := service.NewUserService(db, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go serveMetrics(cfg.Monitoring.PrometheusPort, &logger)
	}

	var sheets domain.SheetsWriter
	if sheetsService != nil {
		sheets = sheetsService
	}

	apiServer := api.NewHTTPServer(cfg, connectionService, bookingService, userService, sheets, stateRepo, &logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.ServiceType, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	catalogPath := cfg.Services.CatalogPath
	if catalogPath == "" {
		catalogPath = "configs/services.yaml"
	}
	catalogData, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", catalogPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var catalogConfig struct {
		Services []models.ServiceType `yaml:"services"`
	}
	if err := yaml.Unmarshal(catalogData, &catalogConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга services.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}
	if len(catalogConfig.Services) == 0 {
		logger.Warn().Str("path", catalogPath).Msg("service catalog is empty, booking service_type will not be validated")
	}

	return cfg, catalogConfig.Services, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.StateRepository) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(models.DefaultStatsCacheTTL) * time.Second
	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	fallbackRepo := repository.NewMemoryStateRepository(ttl)
	return redisClient, repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingsSpreadSheetID == "" {
		logger.Info().Msg("Google Sheets mirror disabled, credentials not configured")
		return nil
	}

	sheetsSvc, err := google.NewSimpleSheetsService(cfg.Google.GoogleCredentialsFile, cfg.Google.BookingsSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Notifications.Enabled && cfg.Notifications.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChat, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Telegram notifier init failed, falling back to log notifier")
		} else {
			return tg
		}
	}
	return notify.NewLogNotifier(logger)
}

// subscribeMetricEvents feeds Prometheus counters from domain events so the
// services stay free of metrics wiring.
func subscribeMetricEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventBookingStatusChanged, func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		metrics.IncBookingTransition(payload.PrevStatus, payload.Status)
		return nil
	})

	bus.Subscribe(events.EventBookingCreated, func(ev *events.Event) error {
		metrics.IncBookingTransition("", models.StatusPending)
		return nil
	})

	connectionOutcome := map[string]string{
		events.EventConnectionRequested: "requested",
		events.EventConnectionAccepted:  "accepted",
		events.EventConnectionRejected:  "rejected",
		events.EventConnectionCancelled: "cancelled",
		events.EventConnectionRemoved:   "removed",
	}
	for eventType, outcome := range connectionOutcome {
		outcome := outcome
		bus.Subscribe(eventType, func(*events.Event) error {
			metrics.IncConnectionRequest(outcome)
			return nil
		})
	}
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
