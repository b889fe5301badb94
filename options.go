package blade

import (
	"log/slog"
	"os"

	"github.com/blade-go/blade/internal/config"
	"github.com/blade-go/blade/pkg/discovery"
)

// Option configures a Blade.
type Option func(*Blade)

// WithLogger sets the logger. Subsystems derive their own loggers from it.
func WithLogger(l *slog.Logger) Option {
	return func(b *Blade) { b.logger = l }
}

// WithDiscoverer replaces the built-in catalog as the discovery source.
func WithDiscoverer(d discovery.Discoverer) Option {
	return func(b *Blade) { b.discoverer = d }
}

// WithTypes adds types to the built-in catalog.
func WithTypes(types ...*discovery.Type) Option {
	return func(b *Blade) { b.catalog.Add(types...) }
}

// WithConfig applies the package lists of a configuration file.
func WithConfig(cfg *config.Config) Option {
	return func(b *Blade) {
		b.cfg = cfg
		b.packages.Base = cfg.BasePackage
		b.packages.Routes = append(b.packages.Routes, cfg.Routes...)
		b.packages.Interceptors = append(b.packages.Interceptors, cfg.Interceptors...)
		b.iocPackages = append(b.iocPackages, cfg.Ioc...)
	}
}

func debugLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
