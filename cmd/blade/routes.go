package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Build the route table from the manifest and print it.

Handlers are listed first in registration order, followed by BEFORE and
AFTER interceptors. Packages skipped for invalid route paths are reported
as warnings.

Formats: table (default), json, yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Destroy()

			w := cmd.OutOrStdout()
			for _, f := range app.Failures() {
				warn(cmd.ErrOrStderr(), "%v", f)
			}
			rows := routeRows(app.Table().Entries())
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml":
				return yaml.NewEncoder(w).Encode(rows)
			case "table", "":
				renderRoutes(w, rows)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or yaml")

	return cmd
}

// routeRow is one listed entry.
type routeRow struct {
	Seq     int    `json:"seq" yaml:"seq"`
	Method  string `json:"method" yaml:"method"`
	Path    string `json:"path" yaml:"path"`
	Handler string `json:"handler" yaml:"handler"`
	Suffix  string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
}

func routeRows(entries []*route.Entry) []routeRow {
	rows := make([]routeRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, routeRow{
			Seq:     e.Seq(),
			Method:  string(e.Method),
			Path:    e.Path,
			Handler: e.Name(),
			Suffix:  e.Suffix,
		})
	}
	return rows
}

var methodColors = map[string]lipgloss.Color{
	string(web.GET):    lipgloss.Color("10"),
	string(web.POST):   lipgloss.Color("12"),
	string(web.PUT):    lipgloss.Color("11"),
	string(web.PATCH):  lipgloss.Color("14"),
	string(web.DELETE): lipgloss.Color("9"),
	string(web.BEFORE): lipgloss.Color("13"),
	string(web.AFTER):  lipgloss.Color("13"),
}

// renderRoutes draws the rows as a table. Colors are downsampled to the
// terminal's profile and stripped when w is not a terminal.
func renderRoutes(w io.Writer, rows []routeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No routes registered")
		return
	}

	out := colorprofile.NewWriter(w, os.Environ())
	useColors := isTerminal(w)

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{strconv.Itoa(r.Seq), r.Method, r.Path, r.Handler}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if !useColors {
				return style
			}
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if c, ok := methodColors[rows[row].Method]; ok {
					return style.Foreground(c)
				}
			}
			return style
		}).
		Headers("#", "Method", "Path", "Handler").
		Rows(data...)

	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			t = t.Width(min(width, 160))
		}
	}

	fmt.Fprintln(out, t.Render())
}
