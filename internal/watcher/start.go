package watcher

import (
	"context"
	"fmt"
	"time"

	"marketwatcher/config"
	"marketwatcher/internal/calendar"
	"marketwatcher/internal/memorystore"
	"marketwatcher/internal/stream"
	"marketwatcher/pkg/feed"
	redispub "marketwatcher/pkg/publish/redis"
	"marketwatcher/pkg/storage"
	"marketwatcher/pkg/storage/file"
	"marketwatcher/pkg/storage/memory"
	"marketwatcher/pkg/storage/postgres"
	s3store "marketwatcher/pkg/storage/s3"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Start builds the calendar, storage, publisher and feed from cfg and runs
// the pipeline until ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	instruments := memorystore.NewInstrumentStore(cfg.Subscribe...)
	if len(instruments.GetAll()) == 0 {
		return fmt.Errorf("no instruments to subscribe")
	}

	cal, err := BuildCalendar(cfg.Calendar, instruments.GetAll())
	if err != nil {
		return err
	}
	for _, id := range instruments.GetAll() {
		if _, err := cal.SessionsFor(id); err != nil {
			logger.Warn("Instrument has no trading sessions, its ticks will be dropped", zap.String("instrument", id))
			continue
		}
		logger.Debug("Instrument scheduled", zap.String("instrument", id), zap.String("market", cal.MarketOf(id)))
	}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var consumers []Consumer
	var publisher *redispub.Publisher
	if cfg.Redis.Addr != "" {
		publisher, err = redispub.New(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer publisher.Close()
		consumers = append(consumers, publisher)
	}

	coord := New(Options{
		Calendar:       cal,
		Instruments:    instruments,
		Consumers:      consumers,
		Store:          store,
		GracePeriod:    cfg.Storage.GracePeriod,
		WriteTimeout:   cfg.Storage.WriteTimeout,
		Clock:          clock.New(),
		QueueSize:      cfg.Watcher.QueueSize,
		StatusInterval: cfg.Watcher.StatusInterval,
		Logger:         logger,
	})

	wsClient := feed.NewWSClient(cfg.Feed, instruments, logger)
	wsClient.SetMessageHandler(stream.MakeMessageHandler(ctx, logger, coord))
	wsClient.SetReadyHandler(func() {
		if err := coord.SessionReady(ctx); err != nil {
			logger.Warn("session ready not delivered", zap.Error(err))
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coord.Run(ctx) })
	if publisher != nil {
		g.Go(func() error {
			publisher.Run(ctx)
			if n := publisher.Dropped(); n > 0 {
				logger.Warn("ticks dropped by publisher", zap.Uint64("count", n))
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := wsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to feed: %w", err)
		}
		wsClient.Listen(ctx)
		return nil
	})

	return g.Wait()
}

// BuildCalendar resolves the configured markets for instruments.
func BuildCalendar(cfg config.CalendarConfig, instruments []string) (*calendar.Calendar, error) {
	loc, err := calendar.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	markets, err := calendar.MarketsFromConfig(cfg.Markets)
	if err != nil {
		return nil, err
	}
	cal, _ := calendar.New(loc, markets, instruments)
	return cal, nil
}

// OpenStore returns the configured storage backend, or a nil Store when
// persistence is disabled. The returned func releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	noop := func() {}
	if !cfg.Storage.PersistEnabled() {
		logger.Info("Persistence disabled, ticks are forwarded only")
		return nil, noop, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendFile:
		logger.Info("Persisting ticks to files", zap.String("root", cfg.Storage.Path))
		return file.NewStore(cfg.Storage.Path), noop, nil

	case config.BackendS3:
		s, err := s3store.New(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, noop, err
		}
		hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.Health(hctx); err != nil {
			logger.Warn("S3 bucket not reachable at startup", zap.Error(err))
		}
		logger.Info("Persisting ticks to S3", zap.String("bucket", cfg.Storage.S3.Bucket))
		return s, noop, nil

	case config.BackendPostgres:
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to DB: %w", err)
		}
		logger.Info("Persisting ticks to postgres", zap.String("db", cfg.Postgres.DBName))
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close postgres", zap.Error(err))
			}
		}, nil

	case config.BackendMemory:
		logger.Info("Keeping flushed ticks in memory")
		return memory.NewStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
