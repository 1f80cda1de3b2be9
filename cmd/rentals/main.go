package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	rentalhandlers "rentals/internal/app/handlers/rentals"
	"rentals/internal/app/middleware"
	appoutbox "rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	rentalsvc "rentals/internal/app/services/rentals"
	"rentals/internal/app/uow"
	domainitems "rentals/internal/domain/items"
	domainsettings "rentals/internal/domain/settings"
	"rentals/internal/infra/broker/kafka"
	"rentals/internal/infra/config"
	mongodb "rentals/internal/infra/db/mongo"
	"rentals/internal/infra/db/postgres"
	ginserver "rentals/internal/infra/http/gin"
	"rentals/internal/infra/jobs"
	redislock "rentals/internal/infra/lock/redis"
	"rentals/internal/infra/notify"
	"rentals/internal/infra/obs"
	infraoutbox "rentals/internal/infra/outbox"
	"rentals/internal/infra/payments"
	"rentals/internal/infra/storage/memory"
	redisstore "rentals/internal/infra/storage/redis"
	"rentals/internal/infra/validation"
)

const notifyConsumerGroup = "rentals-notify"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.close(logger)

	if err := store.settings.Save(ctx, domainsettings.PlatformSettings{FeeRate: cfg.PlatformFee}); err != nil {
		logger.Warn("platform settings not stored", "error", err)
	}
	fixturesPath := getenv("ITEMS_FIXTURES", "")
	if fixturesPath == "" {
		fixturesPath = defaultItemFixturesPath()
	}
	if err := loadItemFixtures(ctx, store.items, fixturesPath, cfg.Currency, logger); err != nil {
		logger.Warn("item fixtures load failed", "error", err, "path", fixturesPath)
	}

	var workers sync.WaitGroup
	notifier := startNotifications(ctx, cfg, store, logger, &workers)

	svc := rentalsvc.New(rentalsvc.Options{
		Dependencies: rentalhandlers.Dependencies{
			UoWFactory: store.factory,
			Policy:     cfg.CancellationPolicy,
			Payments:   newPaymentGateway(cfg, logger),
			Notifier:   notifier,
			Outbox:     store.outbox,
			Encoder:    appoutbox.JSONEventEncoder{},
			Logger:     logger,
		},
		Validator:   validation.New(),
		Idempotency: store.idempotency,
		Logger:      logger,
	})

	scheduler := jobs.NewScheduler(ctx, time.Minute, logger)
	if err := scheduler.Register(jobs.ExpirePendingJob, cfg.ExpiryCron, jobs.ExpirePending(svc, logger)); err != nil {
		logger.Error("scheduler init failed", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: store.checks}, ginserver.Handlers{
		Rentals:         ginserver.RentalHandler{Service: svc},
		Items:           ginserver.ItemHandler{Service: svc},
		ActorMiddleware: ginserver.ActorMiddleware(),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	workers.Wait()
	logger.Info("HTTP server stopped")
}

// outboxStore is written by handlers and drained by the relay worker.
type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Store
}

type itemSaver interface {
	Save(ctx context.Context, item *domainitems.Item) error
}

type settingsSaver interface {
	Save(ctx context.Context, s domainsettings.PlatformSettings) error
}

type storage struct {
	factory     uow.UoWFactory
	items       itemSaver
	settings    settingsSaver
	outbox      outboxStore
	inbox       notify.Inbox
	idempotency middleware.IdempotencyStore
	checks      []obs.Check
	closers     []func(ctx context.Context) error
}

func (s storage) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	var (
		s     storage
		locks uow.Locker = memory.NewKeyedMutex()
	)
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		locks = redislock.NewLocker(client)
		s.idempotency = redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		s.checks = append(s.checks, obs.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return s, err
		}
		factory := mongodb.NewFactory(client.DB, locks)
		s.factory = factory
		s.items = factory.ItemsRepo
		s.settings = factory.SettingsRepo
		s.outbox = mongodb.NewOutboxStore(client.DB)
		s.inbox = mongodb.NewInboxStore(client.DB, notifyConsumerGroup)
		if s.idempotency == nil {
			s.idempotency = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		}
		s.checks = append(s.checks, obs.Check{Name: "mongo", Probe: client.Ping})
		s.closers = append(s.closers, client.Close)
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return s, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return s, err
		}
		s.factory = postgres.NewUnitOfWorkFactory(db)
		s.items = postgres.NewItemRepository(db)
		s.settings = postgres.NewSettingsRepository(db)
		s.outbox = postgres.NewOutboxStore(db)
		s.inbox = memory.NewInboxStore()
		s.checks = append(s.checks, obs.Check{Name: "postgres", Probe: db.PingContext})
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
	default:
		factory := memory.NewFactory()
		settings := memory.NewSettingsRepository()
		factory.Locks = locks
		factory.SettingsRepo = settings
		s.factory = factory
		s.items = factory.ItemsRepo
		s.settings = settings
		s.outbox = memory.NewOutbox()
		s.inbox = memory.NewInboxStore()
	}
	if s.idempotency == nil {
		s.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}
	return s, nil
}

func newPaymentGateway(cfg config.Config, logger *slog.Logger) policies.PaymentGateway {
	if cfg.PaymentsMode == config.PaymentsHTTP {
		return payments.NewHTTPGateway(cfg.PaymentsURL, cfg.PaymentsTimeout, logger)
	}
	return payments.NewStubGateway()
}

// startNotifications runs the outbox relay and, with Kafka configured, the
// consumer that delivers notification requests. It returns the notifier the
// handlers should use.
func startNotifications(ctx context.Context, cfg config.Config, store storage, logger *slog.Logger, wg *sync.WaitGroup) policies.Notifier {
	delivery := notify.LogNotifier{Logger: logger}
	worker := &infraoutbox.Worker{
		Store:       store.outbox,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	var notifier policies.Notifier = delivery
	if len(cfg.KafkaBrokers) == 0 {
		worker.Producer = infraoutbox.LogProducer{Logger: logger}
	} else {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "rentals")
		if err != nil {
			logger.Error("kafka producer init failed, logging outbox instead", "error", err)
			worker.Producer = infraoutbox.LogProducer{Logger: logger}
		} else {
			worker.Producer = producer
			go func() {
				<-ctx.Done()
				_ = producer.Close()
			}()
			if consumer := startNotifyConsumer(ctx, cfg, store, worker, delivery, logger, wg); consumer {
				notifier = notify.OutboxNotifier{Outbox: store.outbox}
			}
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	return notifier
}

func startNotifyConsumer(ctx context.Context, cfg config.Config, store storage, worker *infraoutbox.Worker, delivery policies.Notifier, logger *slog.Logger, wg *sync.WaitGroup) bool {
	handler := &notify.Consumer{Inbox: store.inbox, Delivery: delivery, Logger: logger}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, notifyConsumerGroup, handler, logger)
	if err != nil {
		logger.Error("kafka consumer init failed, notifications are delivered inline", "error", err)
		return false
	}
	topic := worker.TopicFor(notify.EventName)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer consumer.Close()
		if err := consumer.Run(ctx, []string{topic}); err != nil {
			logger.Error("notification consumer stopped", "error", err)
		}
	}()
	logger.Info("notification consumer started", "topic", topic)
	return true
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
