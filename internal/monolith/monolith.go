// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/config"
	"github.com/fd1az/nft-auction/internal/di"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/store"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	DB() *store.DB
	Events() *events.Log
	Clock() clock.Clock
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Option customises New.
type Option func(*app)

// WithDB uses db instead of opening the configured store.
func WithDB(db *store.DB) Option {
	return func(a *app) { a.db = db }
}

// WithClock replaces the system clock.
func WithClock(clk clock.Clock) Option {
	return func(a *app) { a.clock = clk }
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	db            *store.DB
	events        *events.Log
	clock         clock.Clock
	assetRegistry *asset.Registry
	container     di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface, opts ...Option) (*app, error) {
	a := &app{config: cfg, logger: log}
	for _, opt := range opts {
		opt(a)
	}

	if a.db == nil {
		db, err := store.Open(cfg.Store, log)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	if a.clock == nil {
		a.clock = clock.System{}
	}

	eventLog, err := events.NewLog(a.db, events.NewBus(), a.clock)
	if err != nil {
		return nil, err
	}
	a.events = eventLog

	a.assetRegistry = asset.DefaultRegistry(asset.ETH)
	for _, c := range cfg.Currencies {
		a.assetRegistry.Register(asset.NewAsset(c.AddressHex(), c.Symbol, c.Name, c.Decimals))
	}

	a.container = di.NewContainer()

	// Register global services
	a.container.Register("config", cfg)
	a.container.Register("logger", log)
	a.container.Register("db", a.db)
	a.container.Register("events", a.events)
	a.container.Register("clock", a.clock)
	a.container.Register("assetRegistry", a.assetRegistry)

	return a, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) DB() *store.DB {
	return a.db
}

func (a *app) Events() *events.Log {
	return a.events
}

func (a *app) Clock() clock.Clock {
	return a.clock
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the event bus and closes the store.
func (a *app) Close() error {
	a.events.Bus().Close()
	return a.db.Close()
}
