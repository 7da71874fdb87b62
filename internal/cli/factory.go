package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/config"
	"github.com/aretw0/statecraft/internal/logging"
	"github.com/aretw0/statecraft/pkg/adapters/file"
	"github.com/aretw0/statecraft/pkg/adapters/memory"
	"github.com/aretw0/statecraft/pkg/adapters/redis"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/observability"
	"github.com/aretw0/statecraft/pkg/persistence"
	"github.com/aretw0/statecraft/pkg/persistence/middleware"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/aretw0/statecraft/pkg/simulate"
)

// Backend is an opened snapshot store. A nil Store means persistence is off.
type Backend struct {
	Store   ports.SnapshotStore
	Options []persistence.Option
	closers []func() error
}

// Close releases connections held by the store.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the store selected by cfg and wraps it with encryption when
// a key is configured.
func OpenStore(cfg config.StoreConfig) (*Backend, error) {
	b := &Backend{}
	switch cfg.Backend {
	case "", "none":
		return b, nil
	case "memory":
		b.Store = memory.NewStore()
	case "file":
		b.Store = file.New(cfg.Dir)
	case "redis":
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL()),
		)
		b.Store = rs
		b.closers = append(b.closers, rs.Close)
		if cfg.Redis.Lock {
			locker := redis.NewLocker(rs.Client(), cfg.Redis.Prefix)
			b.Options = append(b.Options, persistence.WithLocker(locker, persistence.DefaultLockTTL))
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	key, fallback, err := cfg.Keys()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    key,
			FallbackKeys: fallback,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to enable encryption: %w", err)
		}
		b.Store = middleware.Chain(b.Store, enc)
	}
	return b, nil
}

// NewLogger creates the application logger from the log section.
func NewLogger(cfg config.LogConfig, out io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithOptions(logging.Options{Level: level, Format: cfg.Format, Output: out}), nil
}

// Runtime is a System plus the resources the CLI opened for it.
type Runtime struct {
	System  *statecraft.System
	Metrics *observability.Metrics
	Backend *Backend
	Logger  *slog.Logger
}

// NewRuntime builds a System with the standard CLI conventions: metrics
// hooks always, audit logging in debug, persistence as configured.
func NewRuntime(cfg config.Config, logger *slog.Logger, extra ...statecraft.Option) (*Runtime, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	backend, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	opts := []statecraft.Option{
		statecraft.WithLogger(logger),
		statecraft.WithSeed(cfg.Seed),
		statecraft.WithLifecycleHooks(metrics.Hooks()),
		statecraft.WithNetwork(network.Options{
			Baseline:     cfg.Network.BaselineDelay(),
			ConnectDelay: cfg.Network.ConnectDelay(),
		}),
		statecraft.WithToasts(toast.Options{
			DefaultDuration: cfg.Toast.DefaultDuration(),
			Hide:            cfg.Toast.HideDelay(),
		}),
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		opts = append(opts, statecraft.WithLifecycleHooks(observability.AuditHooks(logger)))
	}
	if backend.Store != nil {
		opts = append(opts, statecraft.WithStore(backend.Store, backend.Options...))
	}
	opts = append(opts, extra...)

	return &Runtime{
		System:  statecraft.New(opts...),
		Metrics: metrics,
		Backend: backend,
		Logger:  logger,
	}, nil
}

// Simulation turns the simulate section into a System option.
func Simulation(cfg config.SimulateConfig) statecraft.Option {
	return statecraft.WithSimulation(cfg.RemoteEdits, cfg.Syncer, simulate.Options{
		MinDelay: cfg.MinDelay(),
		MaxDelay: cfg.MaxDelay(),
		Warmup:   cfg.Warmup(),
	})
}

// Close stops the system and then releases the store.
func (r *Runtime) Close() error {
	r.System.Close()
	return r.Backend.Close()
}
