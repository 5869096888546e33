package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/gamepipe/internal/cache"
	"github.com/specialistvlad/gamepipe/internal/config"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/metrics"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/specialistvlad/gamepipe/internal/provenance"
	"github.com/specialistvlad/gamepipe/internal/registry"
	"github.com/specialistvlad/gamepipe/internal/replacement"
)

// App encapsulates the application's services, configuration and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model

	promRegistry *prometheus.Registry
	metrics      *metrics.Collectors
	index        *cache.Index
	store        *cache.Store
	handlers     *handlers.Handlers
	registry     *registry.Registry
	router       *replacement.Router
	provenance   *provenance.Resolver

	httpServer *http.Server
}

// NewApp loads the configuration and wires every service. Modules default
// to the core step modules.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader, modules ...handlers.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	model := config.NewModel()
	if loader != nil && len(cfg.ConfigPaths) > 0 {
		loaded, err := loader.Load(ctx, cfg.ConfigPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		model = loaded
	}
	cfg.applySettings(model.Settings)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded.", "pipelines", len(model.Pipelines), "cache_dir", cfg.CacheDir, "offline", cfg.Offline)

	a := &App{outW: outW, logger: logger, config: cfg, model: model}

	a.promRegistry = prometheus.NewRegistry()
	a.promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.promRegistry)

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	index, err := cache.OpenIndex(filepath.Join(cfg.CacheDir, IndexFileName))
	if err != nil {
		return nil, err
	}
	a.index = index

	a.store, err = cache.New(cache.Options{
		Root:              cfg.CacheDir,
		ManifestURL:       cfg.ManifestURL,
		AssetRepository:   cfg.AssetRepository,
		MavenRepositories: cfg.MavenRepositories,
		Offline:           cfg.Offline,
		Index:             index,
		Metrics:           a.metrics,
		AssetWorkers:      cfg.AssetWorkers,
	})
	if err != nil {
		index.Close()
		return nil, err
	}

	if len(modules) == 0 {
		modules = coreModules(a.store)
	}
	a.handlers = handlers.New(modules...)
	logger.Debug("All step modules registered.", "count", len(modules), "types", a.handlers.Names())

	materializer := pipeline.NewMaterializer(a.store, a.handlers, cfg.WorkDir, a.metrics)
	a.registry = registry.New(materializer, a.metrics)
	a.provenance = provenance.New(provenance.StaticGraph{}, a.registry)

	a.router = replacement.NewRouter(a.metrics)
	a.router.Register(replacement.GameHandler(replacement.GameConfig{
		Versions:       a.store,
		Instances:      a.registry,
		DefaultVersion: cfg.DefaultVersion,
		Template:       a.template,
	}))

	if cfg.HealthcheckPort > 0 {
		if _, err := a.startHealthcheckServer(cfg.HealthcheckPort); err != nil {
			index.Close()
			return nil, err
		}
	}
	return a, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Store returns the artifact cache.
func (a *App) Store() *cache.Store { return a.store }

// Registry returns the pipeline registry.
func (a *App) Registry() *registry.Registry { return a.registry }

// Router returns the replacement router.
func (a *App) Router() *replacement.Router { return a.router }

// Model returns the loaded configuration.
func (a *App) Model() *config.Model { return a.model }

// Close stops the health check server and releases the cache index.
func (a *App) Close(ctx context.Context) error {
	var errs *multierror.Error
	if err := a.closeHealthcheckServer(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// template picks the pipeline the game handler builds for side: the
// configured replacement pipeline if it matches the side, otherwise the
// first declared pipeline of that side, otherwise a pipeline with no steps.
func (a *App) template(side game.Side) pipeline.Options {
	candidates := a.model.PipelineNames()
	if name := a.config.ReplacementPipeline; name != "" {
		candidates = append([]string{name}, candidates...)
	}
	for _, name := range candidates {
		p, ok := a.model.Pipelines[name]
		if !ok {
			continue
		}
		if s, err := game.ParseSide(p.Side); err != nil || s != side {
			continue
		}
		opts, err := p.Options("")
		if err != nil {
			continue
		}
		return opts
	}
	return pipeline.Options{}
}

// errNoOutput is returned when a pipeline has nothing to realize.
var errNoOutput = errors.New("pipeline has no output to realize")
