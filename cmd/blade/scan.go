package main

import (
	"github.com/spf13/cobra"

	"github.com/blade-go/blade/pkg/discovery"
)

func scanCmd(flags *globalFlags) *cobra.Command {
	var output, module string

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Write the manifest from source directives",
		Long: `Scan Go source for //blade: directives and write the manifest.

The scan root defaults to the configured source directory. The manifest is
written to --output, else --manifest, else the configured manifest path.
An s3://bucket/key destination uploads the manifest. The format follows the
file extension (.json, .yaml or .yml).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			root := cfg.SourcePath()
			if len(args) == 1 {
				root = args[0]
			}
			if output == "" {
				output = manifestLocation(cfg, flags)
			}

			m, err := scan(root, module)
			if err != nil {
				return err
			}
			if err := saveManifest(cmd.Context(), m, output, flags); err != nil {
				return err
			}

			success(cmd.OutOrStdout(), "Wrote %s (%d types)", output, len(m.Types))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest destination")
	cmd.Flags().StringVar(&module, "module", "", "Module path (default: read from go.mod)")

	return cmd
}

// scan reads the directives under root into a validated manifest.
func scan(root, module string) (*discovery.Manifest, error) {
	s := discovery.NewScanner(root)
	if module != "" {
		s = s.WithModule(module)
	}
	m, err := s.Scan()
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
