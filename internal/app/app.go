package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/fieldgraph/internal/ctxlog"
	"github.com/specialistvlad/fieldgraph/internal/region"
	"github.com/specialistvlad/fieldgraph/internal/registry"
)

// App owns one root region, the field type registry and the loggers of a
// run.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	region   *region.Region
}

// NewApp builds an App whose results go to outW and whose logs go to logW.
// Without modules every core module is registered. An inconsistent registry
// is a programmer error and panics.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	ctxlog.FromContext(ctx).Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.NewWith(modules...)
	logger.Debug("All field modules registered.", "count", len(modules), "types", len(reg.TypeNames()))

	if err := reg.Validate(); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		region:   region.New("", region.WithLogger(logger)),
	}
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Region returns the root region descriptions are loaded into.
func (a *App) Region() *region.Region {
	return a.region
}
