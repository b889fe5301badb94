package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blade-go/blade"
	"github.com/blade-go/blade/internal/config"
	"github.com/blade-go/blade/pkg/web"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func newTestApp(t *testing.T) *blade.Blade {
	t.Helper()
	app := blade.New().
		Before("/", func(c *web.Context) error {
			c.Response.Header().Set("X-Before", "1")
			return nil
		}).
		Get("/users/:id", func(c *web.Context) error {
			_, err := io.WriteString(c.Response, "user "+c.Param("id"))
			return err
		}).
		Get("/teapot", func(c *web.Context) error {
			c.Status(http.StatusTeapot)
			return errors.New("short and stout")
		}).
		Post("/fail", func(c *web.Context) error {
			return errors.New("validation failed")
		}).
		Get("/span", func(c *web.Context) error {
			if !SpanFromContext(c).SpanContext().Equal(SpanFromContext(c).SpanContext()) {
				t.Error("span changed within a request")
			}
			c.Status(http.StatusNoContent)
			return nil
		})
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return app
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServerDispatch(t *testing.T) {
	s := New(newTestApp(t), nil)

	rec := do(s, http.MethodGet, "/users/42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "user 42" {
		t.Errorf("body = %q, want %q", got, "user 42")
	}
	if rec.Header().Get("X-Before") != "1" {
		t.Error("BEFORE interceptor did not run")
	}

	rec = do(s, http.MethodGet, "/users/a%20b")
	if got := rec.Body.String(); got != "user a b" {
		t.Errorf("body = %q, want decoded parameter", got)
	}

	got := counterValue(t, s.metrics.requestsTotal.WithLabelValues("GET", "/users/:id", "200"))
	if got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
}

func TestServerNotFound(t *testing.T) {
	s := New(newTestApp(t), nil)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/nope"},
		{http.MethodDelete, "/users/1"},
		{http.MethodGet, "/users/1/../../.."},
		{http.MethodGet, "/users/a%2Fb"},
	}
	for _, tc := range tests {
		if rec := do(s, tc.method, tc.target); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tc.method, tc.target, rec.Code)
		}
	}
	if got := counterValue(t, s.metrics.notFound.WithLabelValues("GET")); got != 3 {
		t.Errorf("not_found_total{GET} = %v, want 3", got)
	}
}

func TestServerDispatchErrors(t *testing.T) {
	s := New(newTestApp(t), nil)

	if rec := do(s, http.MethodPost, "/fail"); rec.Code != http.StatusInternalServerError {
		t.Errorf("POST /fail status = %d, want 500", rec.Code)
	}
	if got := counterValue(t, s.metrics.dispatchErrors.WithLabelValues("/fail", "validation")); got != 1 {
		t.Errorf("dispatch_errors_total = %v, want 1", got)
	}

	// A status written by the handler is kept.
	if rec := do(s, http.MethodGet, "/teapot"); rec.Code != http.StatusTeapot {
		t.Errorf("GET /teapot status = %d, want 418", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(newTestApp(t), nil)
	do(s, http.MethodGet, "/users/1")

	rec := do(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "blade_requests_total") {
		t.Error("metrics output is missing blade_requests_total")
	}

	cfg := DefaultServerConfig()
	cfg.MetricsPath = ""
	s = New(newTestApp(t), cfg)
	if rec := do(s, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("disabled endpoint status = %d, want 404", rec.Code)
	}
}

func TestMetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("shop"), WithConstLabels(prometheus.Labels{"env": "test"}))
	m.observeNotFound("GET")
	m.observeNotFound("BREW")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "shop_not_found_total" {
			found = true
			if n := len(f.GetMetric()); n != 2 {
				t.Errorf("series = %d, want 2", n)
			}
		}
	}
	if !found {
		t.Error("shop_not_found_total was not registered")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("forbidden"), "forbidden"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range tests {
		if got := categorizeError(tc.err); got != tc.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestTracingOptions(t *testing.T) {
	var extracted, filtered atomic.Int32
	cfg := DefaultServerConfig()
	cfg.Tracing = []TracingOption{
		WithTracerName("test"),
		WithRequestFilter(func(r *http.Request) bool {
			filtered.Add(1)
			return r.URL.Path != "/users/skip"
		}),
		WithAttributeExtractor(func(r *http.Request) []attribute.KeyValue {
			extracted.Add(1)
			return []attribute.KeyValue{attribute.String("tenant", "a")}
		}),
	}
	s := New(newTestApp(t), cfg)

	do(s, http.MethodGet, "/span")
	do(s, http.MethodGet, "/users/skip")
	if filtered.Load() != 2 {
		t.Errorf("filter calls = %d, want 2", filtered.Load())
	}
	if extracted.Load() != 1 {
		t.Errorf("extractor calls = %d, want 1", extracted.Load())
	}
}

type closer struct{ closed atomic.Bool }

func (c *closer) Destroy() { c.closed.Store(true) }

func TestServeLifecycle(t *testing.T) {
	app := blade.New().Get("/ping", func(c *web.Context) error {
		_, err := io.WriteString(c.Response, "pong")
		return err
	})
	plugin := &closer{}
	if _, err := app.RegisterPlugin(plugin); err != nil {
		t.Fatalf("RegisterPlugin() error = %v", err)
	}
	s := New(app, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/ping"
	var body string
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(b)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if body != "pong" {
		t.Fatalf("body = %q, want pong", body)
	}
	if !app.Initialized() {
		t.Error("Serve did not initialize the application")
	}
	if got := gaugeValue(t, s.metrics.routes); got != 1 {
		t.Errorf("routes gauge = %v, want 1", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !plugin.closed.Load() {
		t.Error("plugin was not destroyed")
	}
	if app.Table() != nil {
		t.Error("route table still published after shutdown")
	}
}

func TestShutdownWaitsForSlowHandler(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	app := blade.New().Get("/slow", func(c *web.Context) error {
		close(entered)
		<-release
		return nil
	})
	plugin := &closer{}
	if _, err := app.RegisterPlugin(plugin); err != nil {
		t.Fatalf("RegisterPlugin() error = %v", err)
	}
	cfg := DefaultServerConfig()
	cfg.ShutdownTimeout = 50 * time.Millisecond
	s := New(app, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	go func() {
		url := "http://" + ln.Addr().String() + "/slow"
		for i := 0; i < 50; i++ {
			resp, err := http.Get(url)
			if err == nil {
				resp.Body.Close()
				return
			}
			select {
			case <-entered:
				return
			case <-time.After(20 * time.Millisecond):
			}
		}
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if plugin.closed.Load() {
		t.Error("application destroyed while a request was still running")
	}
	if app.Table() == nil {
		t.Error("route table unpublished while a request was still running")
	}

	close(release)
	deadline := time.Now().Add(5 * time.Second)
	for !plugin.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("application not destroyed after the request finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFromConfig(t *testing.T) {
	c := config.New()
	c.Server.Address = ":8080"
	c.Server.ShutdownTimeout = "3s"
	c.Server.MetricsPath = "/_metrics"

	sc := FromConfig(c)
	if sc.Address != ":8080" || sc.ShutdownTimeout != 3*time.Second || sc.MetricsPath != "/_metrics" {
		t.Errorf("FromConfig() = %+v", sc)
	}

	c.Server.MetricsPath = "-"
	if sc := FromConfig(c); sc.MetricsPath != "" {
		t.Errorf("MetricsPath = %q, want disabled", sc.MetricsPath)
	}

	if got := (*ServerConfig)(nil).withDefaults(); got.Address != config.DefaultAddress {
		t.Errorf("withDefaults().Address = %q", got.Address)
	}
}
