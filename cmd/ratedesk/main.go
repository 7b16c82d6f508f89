package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"ratedesk/internal/app/commands"
	"ratedesk/internal/app/dto"
	catalogapp "ratedesk/internal/app/handlers/catalog"
	ratesapp "ratedesk/internal/app/handlers/rates"
	referenceapp "ratedesk/internal/app/handlers/reference"
	"ratedesk/internal/app/middleware"
	"ratedesk/internal/app/outbox"
	"ratedesk/internal/app/queries"
	"ratedesk/internal/app/refdata"
	"ratedesk/internal/app/sequence"
	domainrates "ratedesk/internal/domain/rates"
	"ratedesk/internal/infra/broker/kafka"
	"ratedesk/internal/infra/config"
	mongodb "ratedesk/internal/infra/db/mongo"
	"ratedesk/internal/infra/db/postgres"
	ginserver "ratedesk/internal/infra/http/gin"
	"ratedesk/internal/infra/inbox"
	"ratedesk/internal/infra/obs"
	infraoutbox "ratedesk/internal/infra/outbox"
	"ratedesk/internal/infra/storage/memory"
)

const consumerName = "ratedesk-reference-reload"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLoggerTo(os.Stdout, env, obs.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ratedesk stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("ratedesk stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	metrics := obs.NewMetrics("ratedesk")

	backends, err := openBackends(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer backends.close(logger)

	holder := refdata.NewHolder(backends.store, logger)
	holder.OnReload = func(s *refdata.Snapshot, _ refdata.Report) {
		st := s.Stats()
		metrics.SetReferenceRows("partners", st.Partners)
		metrics.SetReferenceRows("plans", st.Plans)
		metrics.SetReferenceRows("categories", st.Categories)
		metrics.SetReferenceRows("partner_plans", st.PartnerPlans)
		metrics.SetReferenceRows("daily_base_rates", st.DailyBaseRates)
		metrics.SetReferenceRows("category_rules", st.CategoryRules)
		metrics.SetReferenceRows("plan_rules", st.PlanRules)
		metrics.SetReferenceRows("partner_adjustments", st.Adjustments)
	}
	loadCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	_, _, err = holder.Reload(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("initial reference load: %w", err)
	}

	var rateResolver domainrates.Resolver
	if cfg.RateLookup == config.LookupStore {
		rateResolver = refdata.StoreRateResolver{Store: backends.store, Logger: logger}
	}

	tracker := sequence.NewTracker(cfg.SequenceTTL)
	encoder := outbox.JSONEventEncoder{}
	validator := middleware.NewStructValidator()

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[ratesapp.CalculateRateQuery, dto.CalculationResult](queryBus, &ratesapp.CalculateRateHandler{
		Reference: holder,
		Rates:     rateResolver,
		Outbox:    backends.outbox,
		Encoder:   encoder,
		Warnings:  metrics,
		Logger:    logger,
	})
	catalogapp.Register(queryBus, holder)

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[referenceapp.ReloadReferenceCommand, dto.ReferenceReload](commandBus, &referenceapp.ReloadHandler{
		Reloader: holder,
		Outbox:   backends.outbox,
		Encoder:  encoder,
		Observer: metrics,
	})

	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryMetrics(metrics),
		middleware.QueryValidation(validator),
		middleware.Sequencing(tracker),
	)
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.CommandLogging(logger),
		middleware.Validation(validator),
	)

	handlers := ginserver.Handlers{
		Rates:   ginserver.RatesHandler{Queries: queryBusWithMiddleware, Logger: logger},
		Catalog: ginserver.CatalogHandler{Queries: queryBusWithMiddleware, Logger: logger},
		Admin:   ginserver.AdminHandler{Commands: commandBusWithMiddleware, Logger: logger},
	}
	if cfg.MetricsEnabled {
		handlers.Metrics = metrics.Handler()
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: metrics}, obs.HealthHandlers{
		Ready: holder.Ready,
		Info: func() any {
			if s := holder.Current(); s != nil {
				return s.Stats()
			}
			return nil
		},
	}, handlers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := tracker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.KafkaEnabled() {
		if err := startMessaging(gctx, g, cfg, backends, commandBusWithMiddleware, metrics, logger); err != nil {
			return err
		}
	} else {
		logger.Info("kafka disabled, quote events stay in the outbox store", "memory_limit", cfg.OutboxMemoryLimit)
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "rate_lookup", cfg.RateLookup)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}

func startMessaging(ctx context.Context, g *errgroup.Group, cfg config.Config, b *backends, bus commands.Bus, metrics *obs.Metrics, logger *slog.Logger) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	b.closers = append(b.closers, func(context.Context) error { return producer.Close() })

	for i := range cfg.OutboxWorkers {
		worker := &infraoutbox.Worker{
			Queue:       b.queue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			ID:          "outbox-" + strconv.Itoa(i+1),
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
			Observer:    metrics,
		}
		g.Go(func() error {
			err := worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	topic := cfg.KafkaTopicPrefix + "ratecards.events.v1"
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{topic}, nil, kafka.ReloadHandler{
		Commands: bus,
		Inbox:    b.inbox,
		Logger:   logger,
	}, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	b.closers = append(b.closers, func(context.Context) error { return consumer.Close() })
	g.Go(func() error {
		logger.Info("reference reload consumer started", "topic", topic, "group", cfg.KafkaGroupID)
		err := consumer.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	return nil
}

type backends struct {
	store   refdata.Store
	outbox  outbox.Outbox
	queue   outbox.Queue
	inbox   kafka.Inbox
	closers []func(context.Context) error
}

func (b *backends) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func openBackends(ctx context.Context, cfg config.Config, metrics *obs.Metrics, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	memOutbox := memory.NewOutbox()
	memOutbox.Limit = cfg.OutboxMemoryLimit
	memOutbox.OnDrop = func(rec outbox.EventRecord) {
		metrics.CountDropped()
		logger.Debug("memory outbox full, dropped event", "event_id", rec.ID, "name", rec.Name)
	}
	b.outbox, b.queue, b.inbox = memOutbox, memOutbox, memory.NewInbox()

	switch cfg.StoreDriver {
	case config.DriverMemory:
		store, err := memory.LoadReferenceFile(cfg.FixturesPath)
		if err != nil {
			return nil, fmt.Errorf("reference fixtures %s: %w", cfg.FixturesPath, err)
		}
		b.store = store
	case config.DriverMongo:
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.store = mongodb.NewReferenceStore(client.DB, logger)
		mongoOutbox, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			b.close(logger)
			return nil, fmt.Errorf("mongo outbox: %w", err)
		}
		b.outbox, b.queue = mongoOutbox, mongoOutbox
		b.inbox, err = inbox.NewStore(ctx, client.DB, consumerName)
		if err != nil {
			b.close(logger)
			return nil, fmt.Errorf("mongo inbox: %w", err)
		}
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		b.closers = append(b.closers, closePool(pool))
		if cfg.PostgresMigrate {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				b.close(logger)
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
		}
		b.store = postgres.NewReferenceStore(pool)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	return b, nil
}

func closePool(pool *pgxpool.Pool) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
