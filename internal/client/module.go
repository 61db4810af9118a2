package client

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/bus"
	"github.com/SgtClickClack/snipshift-sub007/internal/config"
	"github.com/SgtClickClack/snipshift-sub007/internal/logging"
	"github.com/SgtClickClack/snipshift-sub007/internal/netmon"
	"github.com/SgtClickClack/snipshift-sub007/internal/outbox"
	"github.com/SgtClickClack/snipshift-sub007/internal/poll"
	"github.com/SgtClickClack/snipshift-sub007/internal/store"
	"github.com/SgtClickClack/snipshift-sub007/internal/transport"
)

// Params holds the resolved startup configuration passed to the fx module.
type Params struct {
	ConfigPath string
	AuthToken  string // optional override for the token in the config file
}

// Module returns the fx module for the messaging client, composing all
// providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStore,
			provideTransport,
			provideAPI,
			provideMonitor,
			provideQueue,
			provideSynchronizer,
			NewMessenger,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	if p.AuthToken != "" {
		cfg.AuthToken = p.AuthToken
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*store.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", cfg.CachePath))
	return db, nil
}

func provideTransport(cfg *config.Config, logger *zap.Logger) *transport.Client {
	return transport.NewClient(cfg.BaseURL, logger, transport.WithAuthToken(cfg.AuthToken))
}

func provideAPI(c *transport.Client) transport.API {
	return c
}

func provideMonitor(cfg *config.Config, c *transport.Client, b *bus.Bus, logger *zap.Logger) *netmon.Monitor {
	return netmon.New(c, b, logger, cfg.ProbeInterval.Std())
}

func provideQueue(api transport.API, m *netmon.Monitor, b *bus.Bus, db *store.DB, logger *zap.Logger) *outbox.Queue {
	return outbox.NewQueue(api, m.Online, b, db, logger)
}

func provideSynchronizer(cfg *config.Config, api transport.API, db *store.DB, logger *zap.Logger) *poll.Synchronizer {
	return poll.New(api, db, logger,
		poll.WithIntervals(cfg.ConversationPollInterval.Std(), cfg.MessagePollInterval.Std()))
}

func registerLifecycle(lc fx.Lifecycle, m *netmon.Monitor, q *outbox.Queue, s *poll.Synchronizer, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			m.Start(context.Background())
			q.Start(context.Background())
			logger.Info("messaging client started")
			return nil
		},
		OnStop: func(context.Context) error {
			s.Close()
			q.Stop()
			m.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			logger.Info("messaging client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
