// Package app initializes and holds the long-lived services of the grading
// service, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sitegrade/sitegrade/internal/cache"
	cachememory "github.com/sitegrade/sitegrade/internal/cache/memory"
	"github.com/sitegrade/sitegrade/internal/cache/postgres"
	"github.com/sitegrade/sitegrade/internal/config"
	"github.com/sitegrade/sitegrade/internal/grade"
	"github.com/sitegrade/sitegrade/internal/grading"
	"github.com/sitegrade/sitegrade/internal/notify"
	notifymemory "github.com/sitegrade/sitegrade/internal/notify/memory"
	notifypubsub "github.com/sitegrade/sitegrade/internal/notify/pubsub"
	"github.com/sitegrade/sitegrade/internal/run"
	"github.com/sitegrade/sitegrade/internal/scrape/exa"
)

// App holds the shared services: the report cache, the completion publisher,
// the provider clients, and the runner built on top of them. It is
// initialized once at startup and fails fast if any backend cannot be
// reached.
type App struct {
	logger *zap.Logger
	store  cache.Store
	pub    grade.Publisher
	runner *run.Runner

	closePub func() error
}

// New builds the service graph from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	pub, closePub, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	scraper := exa.New(exa.Config{
		APIKey:   cfg.Exa.APIKey,
		BaseURL:  cfg.Exa.BaseURL,
		Timeout:  cfg.ExaTimeout(),
		Subpages: cfg.Exa.Subpages,
	}, logger.Named("exa"))

	grader := grading.New(grading.Config{
		APIKey:        cfg.Grading.APIKey,
		BaseURL:       cfg.Grading.BaseURL,
		Model:         cfg.Grading.Model,
		FallbackModel: cfg.Grading.FallbackModel,
		Timeout:       cfg.GradingTimeout(),
		RatePerMinute: cfg.Grading.RatePerMinute,
	}, logger.Named("grading"))

	runner := run.NewRunner(scraper, grader, store, pub, run.Config{
		Topic:             cfg.Notify.Topic,
		CacheWriteTimeout: cfg.CacheWriteTimeout(),
	}, logger.Named("run"))

	return &App{
		logger:   logger,
		store:    store,
		pub:      pub,
		runner:   runner,
		closePub: closePub,
	}, nil
}

// Runner returns the grading run orchestrator.
func (a *App) Runner() *run.Runner {
	return a.runner
}

// Store returns the report cache.
func (a *App) Store() cache.Store {
	return a.store
}

// Close drains detached writes and releases backends.
func (a *App) Close() {
	a.runner.Wait()
	a.store.Close()
	if a.closePub != nil {
		if err := a.closePub(); err != nil {
			a.logger.Warn("closing publisher failed", zap.Error(err))
		}
	}
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Cache.Provider {
	case "postgres":
		logger.Info("connecting to postgres report cache",
			zap.String("table", cfg.Cache.Table))
		store, err := postgres.NewStore(ctx, postgres.StoreConfig{
			DSN:      cfg.Cache.DSN,
			Table:    cfg.Cache.Table,
			MaxConns: cfg.Cache.MaxConns,
			MinConns: cfg.Cache.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres cache: %w", err)
		}
		return store, nil
	case "memory":
		logger.Info("using in-memory report cache; entries vanish on restart")
		return cachememory.NewStore(), nil
	case "noop":
		logger.Info("report caching disabled; every request pays for a full run")
		return cache.NoOpStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache.provider %q", cfg.Cache.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (grade.Publisher, func() error, error) {
	switch cfg.Notify.Provider {
	case "pubsub":
		logger.Info("connecting to pub/sub for completion events",
			zap.String("topic", cfg.Notify.Topic))
		pub, err := notifypubsub.New(ctx, cfg.Notify.ProjectID, cfg.Notify.Topic)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize pubsub publisher: %w", err)
		}
		return pub, pub.Close, nil
	case "memory":
		logger.Info("using in-memory completion publisher")
		return notifymemory.New(), nil, nil
	case "noop":
		logger.Info("completion notifications disabled")
		return notify.NoOpPublisher{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify.provider %q", cfg.Notify.Provider)
	}
}
