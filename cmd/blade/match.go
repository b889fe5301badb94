package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

func matchCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match <method> <path>",
		Short: "Show the dispatch plan for a request",
		Long: `Match a request against the route table and print the plan: the
BEFORE interceptors, the handler with its bound parameters, and the AFTER
interceptors, in execution order.

Examples:
  blade match GET /users/42
  blade match POST '/api/orders?draft=1'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, ok := web.ParseMethod(args[0])
			if !ok || !method.IsRequest() {
				return fmt.Errorf("unknown request method %q", args[0])
			}

			app, err := loadApp(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Destroy()

			w := cmd.OutOrStdout()
			plan, ok := app.Match(method, args[1])
			if !ok {
				if asJSON {
					return json.NewEncoder(w).Encode(planView{Method: string(method), Path: args[1], State: route.StateNotFound.String()})
				}
				warn(w, "%s %s: no route", method, args[1])
				return nil
			}

			view := newPlanView(plan)
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			success(w, "%s %s", view.Method, view.Path)
			if view.Query != "" {
				info(w, "query    %s", view.Query)
			}
			for _, k := range sortedKeys(view.Params) {
				info(w, "param    %s=%s", k, view.Params[k])
			}
			for _, e := range view.Before {
				info(w, "before   %-24s %s", e.Path, e.Handler)
			}
			info(w, "handler  %-24s %s", view.Handler.Path, view.Handler.Handler)
			for _, e := range view.After {
				info(w, "after    %-24s %s", e.Path, e.Handler)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	return cmd
}

// planView is the printable form of a plan.
type planView struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query,omitempty"`
	State   string            `json:"state"`
	Params  map[string]string `json:"params,omitempty"`
	Before  []routeRow        `json:"before,omitempty"`
	Handler *routeRow         `json:"handler,omitempty"`
	After   []routeRow        `json:"after,omitempty"`
}

func newPlanView(p *route.Plan) planView {
	handler := routeRows([]*route.Entry{p.Handler})[0]
	return planView{
		Method:  string(p.Method),
		Path:    p.Path,
		Query:   p.Query,
		State:   p.State().String(),
		Params:  p.Params,
		Before:  routeRows(p.Before),
		Handler: &handler,
		After:   routeRows(p.After),
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
