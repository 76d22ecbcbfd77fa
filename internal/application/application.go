package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/advconfig/advconfig"
	"github.com/eugenenazirov/advconfig/internal/api"
	"github.com/eugenenazirov/advconfig/internal/config"
	"github.com/eugenenazirov/advconfig/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store   *advconfig.Store
	storage *storage.LockedStore
	handler *api.Handler
	router  http.Handler
	watcher *advconfig.Watcher
	logger  *zap.Logger
	server  *http.Server

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures New.
type Option func(*options)

type options struct {
	registry *advconfig.Registry
}

// WithRegistry binds the given groups to the served file. Without it the file
// is served as a plain document.
func WithRegistry(registry *advconfig.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// OpenStore creates the store described by cfg, runs the binding pass and makes
// sure the document is loaded even when nothing is bound.
func OpenStore(cfg config.Config, registry *advconfig.Registry, logger *zap.Logger) (*advconfig.Store, advconfig.Report, error) {
	store := advconfig.New(cfg.DataDir, cfg.Path, cfg.Name, registry, advconfig.WithLogger(logger))
	report, err := store.Load()
	if err != nil {
		return nil, report, fmt.Errorf("failed to load %s: %w", store.Path(), err)
	}
	if _, err := store.Document(); err != nil {
		return nil, report, fmt.Errorf("failed to open %s: %w", store.Path(), err)
	}
	return store, report, nil
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{registry: advconfig.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	store, report, err := OpenStore(cfg, o.registry, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("config loaded",
		zap.String("path", report.Path),
		zap.Bool("created", report.Created),
		zap.Int("materialized", len(report.Materialized)),
		zap.Int("loaded", len(report.Loaded)),
	)

	locked := storage.NewLockedStore(store)
	handler := api.NewHandler(locked)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	var watcher *advconfig.Watcher
	if cfg.Watch {
		watcher, err = advconfig.NewWatcher(store.Path(),
			advconfig.WithDebounceDelay(cfg.WatchDebounce),
			advconfig.WithWatcherLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", store.Path(), err)
		}
	}

	return &App{
		store:   store,
		storage: locked,
		handler: handler,
		router:  apiRouter,
		watcher: watcher,
		logger:  logger,
		server:  NewServer(cfg, apiRouter),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.ListenAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server and the file watcher in goroutines.
func (a *App) Start() error {
	if a.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		a.done = make(chan struct{})
		go func() {
			defer close(a.done)
			if err := a.watcher.Watch(ctx, a.reloadFromDisk); err != nil {
				a.logger.Error("config watcher stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) reloadFromDisk() {
	report, err := a.storage.Reload()
	if err != nil {
		a.logger.Error("config reload failed", zap.String("path", a.store.Path()), zap.Error(err))
		return
	}
	a.handler.MarkReloaded()
	a.logger.Info("config reloaded",
		zap.String("path", report.Path),
		zap.Int("materialized", len(report.Materialized)),
		zap.Int("loaded", len(report.Loaded)),
	)
}

// Close stops the file watcher. The HTTP server is shut down separately
// through Server.
func (a *App) Close() error {
	if a.watcher == nil {
		return nil
	}
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	return a.watcher.Close()
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}
