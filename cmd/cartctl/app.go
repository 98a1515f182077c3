package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartstore/internal/cart"
	"github.com/nikolayk812/cartstore/internal/config"
	"github.com/nikolayk812/cartstore/internal/logging"
	"github.com/nikolayk812/cartstore/internal/migrations"
	"github.com/nikolayk812/cartstore/internal/notify"
	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/nikolayk812/cartstore/internal/render"
	"github.com/nikolayk812/cartstore/internal/search"
	"github.com/nikolayk812/cartstore/internal/storage/memory"
	"github.com/nikolayk812/cartstore/internal/storage/postgres"
	"github.com/nikolayk812/cartstore/internal/storage/redisstore"
	"github.com/nikolayk812/cartstore/internal/storage/sqlite"
	"github.com/nikolayk812/cartstore/internal/wishlist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	storage  port.Storage
	notifier port.Notifier
	currency currency.Unit
	cart     port.CartStore
	wishlist *wishlist.Wishlist
	history  *search.History
	out      io.Writer

	closers []func() error
}

type flags struct {
	configPath string
	profile    string
	backend    string
}

func newApp(ctx context.Context, f flags, out, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if f.profile != "" {
		cfg.Profile = f.profile
	}
	if f.backend != "" {
		cfg.Storage.Backend = f.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Validate: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging.New: %w", err)
	}

	unit, err := cfg.CurrencyUnit()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		currency: unit,
		out:      out,
		notifier: notify.Multi(notify.NewConsole(errOut), notify.NewLog(logger)),
	}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	a.storage, err = a.openStorage(ctx)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	registry := prometheus.NewRegistry()
	metrics, err := cart.NewMetrics(registry)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	if path := cfg.Metrics.Textfile; path != "" {
		a.closers = append(a.closers, func() error {
			return writeMetrics(path, registry)
		})
	}

	a.cart, err = cart.New(a.storage,
		cart.WithNotifier(a.notifier),
		cart.WithRenderer(render.NewTable(out, unit, logger)),
		cart.WithCountDisplay(render.NewCount(out)),
		cart.WithCurrency(unit),
		cart.WithMetrics(metrics),
		cart.WithLogger(logger.Named("cart")),
	)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.wishlist, err = wishlist.New(a.storage, a.notifier, logger.Named("wishlist"))
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.history = search.NewHistory(a.storage)

	logger.Debug("app ready",
		zap.String("profile", cfg.Profile),
		zap.String("backend", cfg.Storage.Backend))

	return a, nil
}

func (a *app) openStorage(ctx context.Context) (port.Storage, error) {
	profile := a.cfg.Profile

	switch a.cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendSQLite:
		s, err := sqlite.Open(a.cfg.Storage.SQLitePath, profile)
		if err != nil {
			return nil, fmt.Errorf("sqlite.Open: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		if err := migrations.Apply(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrations.Apply: %w", err)
		}
		return postgres.New(pool, profile)

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Storage.RedisAddr})
		a.closers = append(a.closers, client.Close)
		return redisstore.New(client, profile)

	default:
		return nil, fmt.Errorf("storage.backend[%s] is not supported", a.cfg.Storage.Backend)
	}
}

// writeMetrics leaves the counters of this invocation in a textfile for the
// node_exporter textfile collector.
func writeMetrics(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("prometheus.WriteToTextfile: %w", err)
	}

	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
