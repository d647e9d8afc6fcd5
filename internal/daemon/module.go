// Package daemon wires the feed daemon: session lock, message store, gRPC
// feed service and the optional metrics endpoint.
package daemon

import (
	"context"

	"github.com/matheus3301/daychat/internal/bus"
	"github.com/matheus3301/daychat/internal/config"
	"github.com/matheus3301/daychat/internal/feed"
	"github.com/matheus3301/daychat/internal/lock"
	"github.com/matheus3301/daychat/internal/logging"
	"github.com/matheus3301/daychat/internal/metrics"
	"github.com/matheus3301/daychat/internal/session"
	"github.com/matheus3301/daychat/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config // nil means config.Default()
	SocketPath  string         // optional override for testing; empty = use default
	// Quiet keeps logs out of stderr.
	Quiet bool
}

func (p Params) config() *config.Config {
	if p.Config == nil {
		return config.Default()
	}
	return p.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideRegistry,
			provideFeedMetrics,
			provideFeedService,
			provideObsServer,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	lvl, err := p.config().Log.ZapLevel()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:    session.DaemonLogPath(p.SessionName),
		Session: p.SessionName,
		Level:   lvl,
		Console: !p.Quiet,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second daemon.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.FeedDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("store initialized",
		zap.String("path", db.Path()),
		zap.Uint("schema_version", result.Version),
		zap.Bool("migrated", result.Changed),
	)
	return db, nil
}

func provideRegistry(b *bus.Bus) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "daychat_bus_dropped_events_total",
			Help: "Bus notifications discarded because a subscriber was behind.",
		}, func() float64 { return float64(b.Dropped()) }),
	)
	return reg
}

func provideFeedMetrics(reg *prometheus.Registry) *metrics.Feed {
	return metrics.NewFeed(reg)
}

func provideFeedService(p Params, db *store.DB, b *bus.Bus, m *metrics.Feed, logger *zap.Logger) *feed.Service {
	return feed.NewService(db, feed.ServiceOptions{
		Bus:      b,
		Metrics:  m,
		Logger:   logger.Named("feed"),
		PageSize: p.config().Feed.PageSize,
	})
}

func provideObsServer(p Params, reg *prometheus.Registry, db *store.DB, logger *zap.Logger) (*ObsServer, error) {
	return NewObsServer(p.config().Metrics.ListenAddr, reg, db, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, obs *ObsServer, db *store.DB, lk *lock.Lock, b *bus.Bus, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go logEvents(ctx, b, logger)

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			obs.Start()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := obs.Stop(stopCtx); err != nil {
				logger.Warn("error stopping metrics endpoint", zap.Error(err))
			}
			srv.Stop(stopCtx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

// logEvents writes feed notifications to the debug log until ctx ends.
func logEvents(ctx context.Context, b *bus.Bus, logger *zap.Logger) {
	events, unsub := b.Subscribe(64, "feed.")
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			logger.Debug("feed event", zap.String("kind", evt.Kind), zap.Any("payload", evt.Payload))
		}
	}
}
