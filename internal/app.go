package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	logger_adapter "outreach-service/internal/adapters/logger"
	"outreach-service/internal/adapters/nominatim"
	"outreach-service/internal/adapters/notifier"
	rabbitmq_adapter "outreach-service/internal/adapters/rabbitmq"
	"outreach-service/internal/adapters/rest"
	"outreach-service/internal/adapters/telegram"
	"outreach-service/internal/adapters/whatsapp"
	"outreach-service/internal/configs"
	"outreach-service/internal/constants"
	"outreach-service/internal/core/classifier"
	"outreach-service/internal/core/matching"
	"outreach-service/internal/core/normalizer"
	"outreach-service/internal/core/phone"
	"outreach-service/internal/core/port"
	"outreach-service/internal/core/port/usecases_port"
	"outreach-service/internal/core/usecase"
	fluentlogger "outreach-service/pkg/fluent_logger"
	"outreach-service/pkg/rabbitmq/rabbitmq_common"
	"outreach-service/pkg/rabbitmq/rabbitmq_consumer"
	"outreach-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
)

const shutdownTimeout = 30 * time.Second

// Options - как собирать приложение
type Options struct {
	EnvPath string
	// WithoutListeners: не создавать потребителя очереди и REST сервер (разовые команды CLI)
	WithoutListeners bool
}

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	storage      *storageSet
	registry     *usecase.SourceRegistry
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	logger       port.LoggerPort
	baseLogger   port.LoggerPort

	connManager               *rabbitmq_common.ConnectionManager
	eventsProducer            *rabbitmq_producer.Publisher
	ingestionRequestsListener port.EventListenerPort

	ingestionUC *usecase.RunIngestionUseCase
	matchUC     *usecase.MatchListingsUseCase
	classifier  *classifier.Classifier

	closeOnce sync.Once
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp(opts Options) (*App, error) {
	appConfig, err := configs.LoadConfig(opts.EnvPath)
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   appConfig.StdoutLogger.IsJSON,
		UseColor: !appConfig.StdoutLogger.IsJSON,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	// --- 2. БАЗОВЫЙ ЛОГГЕР ПРИЛОЖЕНИЯ С КОНТЕКСТОМ ---
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// Дальше при ошибке освобождаем всё, что уже успели создать
	a := &App{
		config:       appConfig,
		fluentClient: fluentClient,
		logger:       appLogger,
		baseLogger:   baseLogger,
	}
	if err := a.build(opts); err != nil {
		appLogger.Error("Failed to build application", err, nil)
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(opts Options) error {
	cfg := a.config
	ctx := context.Background()

	// 3. Хранилище
	storage, err := openStorage(ctx, cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	a.storage = storage
	a.logger.Info("Storage adapters initialized.", port.Fields{"driver": cfg.Storage.Driver})

	// 4. Адаптеры порталов
	registry, err := buildRegistry(cfg.Ingestion, a.baseLogger.WithFields(port.Fields{"component": "source_registry"}))
	if err != nil {
		return fmt.Errorf("failed to build source registry: %w", err)
	}
	a.registry = registry

	// 5. Исходящие адаптеры
	var geocoder port.GeocoderPort
	if cfg.Geocoder.URL != "" {
		g, err := nominatim.NewGeocoder(cfg.Geocoder.URL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create geocoder: %w", err)
		}
		geocoder = g
	} else {
		a.logger.Warn("GEOCODER_URL is empty, listings without coordinates will not be geocoded", nil)
	}

	var messenger port.MessengerPort
	if cfg.Outreach.Enabled {
		m, err := whatsapp.NewClient(cfg.Messaging.GatewayURL, cfg.Messaging.GatewayToken)
		if err != nil {
			return fmt.Errorf("failed to create messaging client: %w", err)
		}
		messenger = m
	}

	var taskNotifiers []port.NotifierPort
	var reportPublishers []port.IngestionReportPublisherPort

	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		tg, err := telegram.NewNotifier(bot, cfg.Telegram.ChatID)
		if err != nil {
			return err
		}
		taskNotifiers = append(taskNotifiers, tg)
		reportPublishers = append(reportPublishers, tg)
		a.logger.Info("Telegram notifier initialized.", nil)
	}

	if cfg.RabbitMQ.Enabled {
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(a.baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
		connManager, err := rabbitmq_common.NewManager(cfg.RabbitMQ.URL, connManagerBridge)
		if err != nil {
			return fmt.Errorf("failed to create connection manager: %w", err)
		}
		a.connManager = connManager
		a.logger.Info("RabbitMQ Connection Manager initialized.", nil)

		producerCfg := rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
			ExchangeName:             constants.ExchangeOutreach,
			ExchangeType:             "topic",
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,

			Logger: rabbitmq_adapter.NewPkgLoggerBridge(a.baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
		}
		eventsProducer, err := rabbitmq_producer.NewPublisher(producerCfg, connManager)
		if err != nil {
			return fmt.Errorf("failed to create event producer: %w", err)
		}
		a.eventsProducer = eventsProducer

		taskEvents, err := rabbitmq_adapter.NewTaskEventPublisherAdapter(eventsProducer)
		if err != nil {
			return err
		}
		reports, err := rabbitmq_adapter.NewIngestionReportPublisherAdapter(eventsProducer)
		if err != nil {
			return err
		}
		taskNotifiers = append(taskNotifiers, taskEvents)
		reportPublishers = append(reportPublishers, reports)
		a.logger.Info("RabbitMQ Event Producer initialized.", nil)
	}
	a.logger.Info("All outgoing adapters initialized.", port.Fields{
		"task_notifiers":    len(taskNotifiers),
		"report_publishers": len(reportPublishers),
		"outreach_enabled":  cfg.Outreach.Enabled,
	})

	// 6. USE CASES
	keywords, err := classifier.LoadKeywords(cfg.Ingestion.OwnerKeywordsFile)
	if err != nil {
		return err
	}
	a.classifier = classifier.New(keywords)

	guard, err := usecase.NewAntiDuplicationGuard(storage.interactions)
	if err != nil {
		return err
	}
	generateUC, err := usecase.NewGenerateTasksUseCase(
		guard,
		storage.tasks,
		storage.interactions,
		messenger,
		notifier.NewMulti(taskNotifiers...),
		usecase.TaskEngineConfig{
			ScoreThreshold:    cfg.Matching.ScoreThreshold,
			AntiDupWindowDays: cfg.Matching.AntiDupWindowDays,
			OutreachEnabled:   cfg.Outreach.Enabled,
			Allowlist:         phone.NewAllowlist(cfg.Outreach.Allowlist),
			MessageTemplate:   cfg.Outreach.MessageTemplate,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create generate tasks use case: %w", err)
	}

	matchUC, err := usecase.NewMatchListingsUseCase(storage.listings, storage.profiles, matching.NewScorer(), generateUC)
	if err != nil {
		return err
	}
	a.matchUC = matchUC

	ingestionOpts := []usecase.IngestionOption{
		usecase.WithReportPublisher(notifier.NewMultiReportPublisher(reportPublishers...)),
	}
	if cfg.Matching.MatchAfterIngestion {
		ingestionOpts = append(ingestionOpts, usecase.WithFollowUpMatching(matchUC))
	}
	ingestionUC, err := usecase.NewRunIngestionUseCase(
		registry,
		normalizer.New(),
		a.classifier,
		storage.listings,
		geocoder,
		usecase.NewRunGuard(),
		usecase.IngestionConfig{
			AdapterTimeout:      cfg.Ingestion.AdapterTimeout,
			InterAdapterDelay:   cfg.Ingestion.InterAdapterDelay,
			Concurrency:         cfg.Ingestion.Concurrency,
			MaxErrorsPerAdapter: cfg.Ingestion.MaxErrorsPerAdapter,
			GeocodeTimeout:      cfg.Geocoder.Timeout,
		},
		ingestionOpts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create run ingestion use case: %w", err)
	}
	a.ingestionUC = ingestionUC

	listTasksUC := usecase.NewListTasksUseCase(storage.tasks)
	completeTaskUC := usecase.NewCompleteTaskUseCase(storage.tasks, storage.interactions)
	a.logger.Info("All use cases initialized.", nil)

	if opts.WithoutListeners {
		return nil
	}

	// 7. ВХОДЯЩИЕ АДАПТЕРЫ
	if a.connManager != nil {
		consumerCfg := rabbitmq_consumer.ConsumerConfig{
			Config:                 rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
			QueueName:              constants.QueueIngestionRequests,
			DeclareQueue:           true,
			DurableQueue:           true,
			ExchangeNameForBind:    constants.ExchangeOutreach,
			DeclareExchangeForBind: true,
			ExchangeTypeForBind:    "topic",
			RoutingKeyForBind:      constants.RoutingKeyIngestionRequest,
			// прогон тяжёлый и всё равно один за раз
			PrefetchCount: 1,
			ConsumerTag:   "ingestion-request-adapter",

			EnableRetryMechanism: true,
			RetryExchange:        constants.RetryExchange,
			RetryQueue:           constants.RetryQueue,
			RetryTTL:             constants.RetryTTLMillis,
			FinalDLXExchange:     constants.FinalDLXExchange,
			FinalDLQ:             constants.FinalDLQ,
			FinalDLQRoutingKey:   constants.FinalDLQRoutingKey,
			MaxRetries:           constants.MaxRetries,
		}
		// match_after из запроса нужен, только если сопоставление не идёт после каждого прогона
		var requestMatcher usecases_port.MatchListingsPort
		if !cfg.Matching.MatchAfterIngestion {
			requestMatcher = matchUC
		}
		listener, err := rabbitmq_adapter.NewIngestionRequestConsumerAdapter(consumerCfg, ingestionUC, requestMatcher, a.baseLogger, a.connManager)
		if err != nil {
			return fmt.Errorf("failed to create ingestion request listener: %w", err)
		}
		a.ingestionRequestsListener = listener
		a.logger.Info("Ingestion Request Listener initialized.", nil)
	}

	router := rest.NewRouter(
		rest.NewIngestionHandler(ingestionUC, matchUC, ingestionUC),
		rest.NewTasksHandler(listTasksUC, completeTaskUC),
		rest.NewClassifyHandler(a.classifier),
		a.baseLogger,
	)
	a.apiServer = rest.NewServer(cfg.HTTP.Port, router, a.baseLogger.WithFields(port.Fields{"component": "rest"}))
	a.logger.Info("REST API server configured.", nil)
	return nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	if a.apiServer == nil {
		return fmt.Errorf("application was built without listeners")
	}

	// Единый контекст приложения для graceful shutdown
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.apiServer.Stop(stopCtx); err != nil {
			a.logger.Error("Error during API server shutdown", err, nil)
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		a.Close()
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 2)

	startListener := func(name string, listener port.EventListenerPort) {
		defer wg.Done()
		listenerLogger := a.logger.WithFields(port.Fields{"listener_name": name})
		listenerLogger.Info("Starting listener...", nil)

		if err := listener.Start(appCtx); err != nil {
			listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
			errorsCh <- fmt.Errorf("%s error: %w", name, err)
		} else {
			listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
		}
	}

	if a.ingestionRequestsListener != nil {
		wg.Add(1)
		go startListener("Ingestion Request Listener", a.ingestionRequestsListener)
	}

	go func() {
		if err := a.apiServer.Start(); err != nil {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	a.logger.Info("Application running. Waiting for signals or server error...", port.Fields{"port": a.config.HTTP.Port})
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	}

	cancelApp()
	return nil
}

// Close освобождает ресурсы. Повторный вызов ничего не делает.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.ingestionRequestsListener != nil {
			if err := a.ingestionRequestsListener.Close(); err != nil {
				a.logger.Error("Error closing ingestion request listener", err, nil)
			}
		}

		if a.ingestionUC != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.ingestionUC.Shutdown(ctx); err != nil {
				a.logger.Error("Background geocode jobs did not drain", err, nil)
			}
			cancel()
		}

		if a.registry != nil {
			for _, err := range a.registry.Cleanup() {
				a.logger.Error("Error cleaning up portal adapter", err, nil)
			}
		}

		if a.eventsProducer != nil {
			if err := a.eventsProducer.Close(); err != nil {
				a.logger.Error("Error closing event producer", err, nil)
			}
		}
		if a.connManager != nil {
			if err := a.connManager.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
			}
		}

		if a.storage != nil {
			if err := a.storage.close(); err != nil {
				a.logger.Error("Error closing storage", err, nil)
			} else {
				a.logger.Info("Storage closed.", nil)
			}
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				// fluent может быть уже недоступен
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	})
}

func (a *App) Logger() port.LoggerPort { return a.baseLogger }

func (a *App) Ingestion() *usecase.RunIngestionUseCase { return a.ingestionUC }

func (a *App) Matching() *usecase.MatchListingsUseCase { return a.matchUC }

func (a *App) Classifier() *classifier.Classifier { return a.classifier }

func (a *App) Profiles() port.ClientProfileRepositoryPort { return a.storage.profiles }

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
