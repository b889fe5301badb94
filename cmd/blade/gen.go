package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blade-go/blade/internal/config"
	"github.com/blade-go/blade/internal/dev"
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/discovery"
)

// genOptions are the flags of "blade gen".
type genOptions struct {
	output       string
	pkg          string
	fromManifest bool
	watch        bool
}

func genCmd(flags *globalFlags) *cobra.Command {
	opts := &genOptions{}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate type registrations",
		Long: `Generate the Go file that registers every discovered type with
constructors, field setters and method calls bound statically.

By default the source is scanned first; with --from-manifest the manifest
is read instead. The output is deterministic: running gen twice on the same
input produces identical files.

With --watch, gen keeps running and regenerates whenever Go source, the
manifest or the configuration changes.

Examples:
  blade gen
  blade gen -o internal/wiring/types.go
  blade gen --from-manifest -m s3://releases/app/blade.manifest.yaml
  blade gen --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if opts.output == "" {
				opts.output = cfg.OutputPath()
			}

			w := cmd.OutOrStdout()
			if err := runGen(cmd.Context(), w, cfg, flags, opts); err != nil {
				if !opts.watch {
					return err
				}
				errors.PrintError(err)
			}
			if !opts.watch {
				return nil
			}
			return watchGen(cmd.Context(), w, cfg, flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: from config)")
	cmd.Flags().StringVarP(&opts.pkg, "package", "p", "", "Package name (default: output directory name)")
	cmd.Flags().BoolVar(&opts.fromManifest, "from-manifest", false, "Read the manifest instead of scanning source")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate on changes")

	return cmd
}

func runGen(ctx context.Context, w io.Writer, cfg *config.Config, flags *globalFlags, opts *genOptions) error {
	var m *discovery.Manifest
	var err error
	if opts.fromManifest {
		m, err = loadManifest(ctx, manifestLocation(cfg, flags), flags)
	} else {
		m, err = scan(cfg.SourcePath(), "")
	}
	if err != nil {
		return err
	}

	pkg := opts.pkg
	if pkg == "" {
		pkg = discovery.PackageNameFor(opts.output)
	}
	code, err := discovery.NewGenerator(m, pkg).Generate()
	if err != nil {
		return err
	}

	if existing, err := os.ReadFile(opts.output); err == nil && string(existing) == string(code) {
		info(w, "%s is up to date", opts.output)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.output), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, code, 0644); err != nil {
		return errors.New(errors.CodeGenerate).
			WithDetail("write " + opts.output).
			Wrap(err)
	}

	success(w, "Generated %s (%d types)", opts.output, len(m.Types))
	return nil
}

func watchGen(ctx context.Context, w io.Writer, cfg *config.Config, flags *globalFlags, opts *genOptions) error {
	paths := dev.CollectWatchPaths(cfg)
	watcher, err := dev.NewWatcher(dev.WatcherConfig{
		Paths:  paths,
		Logger: newLogger(os.Stderr, cfg.Debug),
	})
	if err != nil {
		return err
	}

	watcher.OnChange(func(c dev.Change) {
		if c.Type == dev.ChangeOther {
			return
		}
		if c.Type == dev.ChangeManifest && !opts.fromManifest {
			return
		}
		info(w, "%s changed", c.Path)
		if err := runGen(ctx, w, cfg, flags, opts); err != nil {
			errors.PrintError(err)
		}
	})

	info(w, "Watching %d paths (Ctrl+C to stop)", len(paths))
	if err := watcher.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
