package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blade-go/blade/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╗ ┬  ┌─┐┌┬┐┌─┐
  ╠╩╗│  ├─┤ ││├┤
  ╚═╝┴─┘┴ ┴─┴┘└─┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	config      string
	manifest    string
	region      string
	debug       bool
	errorFormat string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(cmd, err)
		os.Exit(1)
	}
}

// reportError writes err to the command's error stream in the style chosen
// by --error-format.
func reportError(cmd *cobra.Command, err error) {
	name, _ := cmd.PersistentFlags().GetString("error-format")
	style, ok := errors.ParseStyle(name)
	if !ok {
		style = errors.StyleText
	}
	errors.WriteError(cmd.ErrOrStderr(), err, style)
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "blade",
		Short: "Route registry and component container tooling",
		Long: `Blade inspects and generates the wiring of a blade application.

Types are described by //blade: directives in Go source. The CLI scans them
into a manifest, generates the registration code, and lets you inspect the
resulting route table without running the application:

  • scan     write the manifest from source directives
  • gen      generate type registrations from the manifest
  • routes   print the route table
  • match    show the dispatch plan for a request`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(cmd.ErrOrStderr()) {
				errors.DisableColors()
			}
			if _, ok := errors.ParseStyle(flags.errorFormat); !ok {
				return errors.New(errors.CodeConfigValidation).
					WithDetailf("unknown error format %q", flags.errorFormat).
					WithSuggestion("Use text, compact or json")
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Config file (default: blade.json or blade.yaml in the project root)")
	pf.StringVarP(&flags.manifest, "manifest", "m", "", "Manifest path or s3://bucket/key URL (default: from config)")
	pf.StringVar(&flags.region, "region", "", "AWS region for s3:// manifests (default: $AWS_REGION)")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&flags.errorFormat, "error-format", "text", "Error output: text, compact or json")

	rootCmd.AddCommand(
		initCmd(flags),
		scanCmd(flags),
		genCmd(flags),
		routesCmd(flags),
		matchCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	if isTerminal(w) {
		fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	if isTerminal(w) {
		fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(w, "⚠ %s\n", fmt.Sprintf(format, args...))
}
