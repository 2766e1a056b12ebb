// Package container wires the configuration, data sources and services of
// the application.
package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"enstats/adapters/excel"
	"enstats/adapters/postgres"
	"enstats/adapters/postgres/migrations"
	"enstats/app"
	"enstats/domain/ensemble"
	"enstats/internal"
	"enstats/internal/config"
	"enstats/internal/errors"
	"enstats/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config  *config.Config
	Catalog *config.Catalog
	Logger  *internal.Logger

	// Infrastructure, nil without DATABASE_URL
	DB    *sqlx.DB
	Store *postgres.VectorStore

	Providers ports.ProviderSet
	Service   *app.TimeSeriesService
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Container{Config: cfg, Logger: logger}, nil
}

// Init loads the ensemble catalog, connects to the database when one is
// configured, loads every ensemble and builds the time series service
func (c *Container) Init(ctx context.Context) error {
	catalog, err := config.LoadCatalog(c.Config.Data.EnsemblesFile)
	if err != nil {
		return err
	}
	return c.InitWithCatalog(ctx, catalog)
}

// InitWithCatalog is Init for an already loaded catalog
func (c *Container) InitWithCatalog(ctx context.Context, catalog *config.Catalog) error {
	c.Catalog = catalog

	if c.Config.Database.URL != "" {
		if err := c.InitDatabase(ctx); err != nil {
			return err
		}
	} else if len(catalog.PostgresSources()) > 0 {
		return errors.ConfigInvalid("DATABASE_URL is required for postgres ensembles")
	}

	if err := c.LoadEnsembles(ctx); err != nil {
		return err
	}

	c.Service = app.NewTimeSeriesService(
		c.Providers,
		ensemble.NewDeltaSet(catalog.Deltas...),
		catalog.Expressions,
		c.Logger.With("component", "timeseries"),
	)
	return nil
}

// InitDatabase connects to PostgreSQL and applies pending migrations
func (c *Container) InitDatabase(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)

	applied, err := migrations.NewMigrator(db.DB).Up(ctx)
	if err != nil {
		db.Close()
		return errors.DatabaseError("failed to apply migrations", err)
	}
	for _, name := range applied {
		c.Logger.Info("applied migration %s", name)
	}

	c.DB = db
	c.Store = postgres.NewVectorStore(db, c.Logger.With("component", "vector_store"))
	return nil
}

// LoadEnsembles reads every catalog ensemble into memory
func (c *Container) LoadEnsembles(ctx context.Context) error {
	files := c.Catalog.FileSources()
	sources := make([]excel.Source, 0, len(files))
	for _, f := range files {
		cfg := excel.DefaultReaderConfig()
		if f.Sheet != "" {
			cfg.Sheet = f.Sheet
		}
		sources = append(sources, excel.Source{Ensemble: f.Name, Path: f.Path, Config: cfg})
	}

	providers, err := excel.LoadAll(ctx, sources, c.Config.Data.LoadConcurrency, c.Logger.With("component", "loader"))
	if err != nil {
		return err
	}

	if pg := c.Catalog.PostgresSources(); len(pg) > 0 {
		names := make([]string, len(pg))
		for i, src := range pg {
			names[i] = src.Name
		}
		stored, err := c.Store.LoadAll(ctx, names, int64(c.Config.Database.MaxOpenConns))
		if err != nil {
			return err
		}
		for name, p := range stored {
			providers[name] = p
		}
	}

	c.Providers = providers
	loaded := providers.Names()
	c.Logger.Info("loaded %d ensembles: %v", len(loaded), loaded)
	return nil
}

// Close releases the database connection
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
