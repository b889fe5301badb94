package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blade-go/blade/internal/config"
)

func initCmd(flags *globalFlags) *cobra.Command {
	var (
		asYAML bool
		force  bool
		base   string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write blade.json (or blade.yaml with --yaml) with default settings.

Examples:
  blade init
  blade init --base example.com/shop --name shop
  blade init --yaml ./services/api`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if config.Exists(dir) && !force {
				return fmt.Errorf("%s already has a configuration file (use --force to overwrite)", dir)
			}

			cfg := config.New()
			cfg.Name = name
			if cfg.Name == "" {
				if abs, err := filepath.Abs(dir); err == nil {
					cfg.Name = filepath.Base(abs)
				}
			}
			cfg.BasePackage = base
			cfg.Debug = flags.debug
			if err := cfg.Validate(); err != nil {
				return err
			}

			file := config.ConfigFileName
			if asYAML {
				file = config.YAMLConfigFileName
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			path := filepath.Join(dir, file)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}

			success(cmd.OutOrStdout(), "Created %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write blade.yaml instead of blade.json")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	cmd.Flags().StringVar(&base, "base", "", "Base package (expands to <base>/route and <base>/interceptor)")
	cmd.Flags().StringVar(&name, "name", "", "Application name (default: directory name)")

	return cmd
}
