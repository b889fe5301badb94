package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blade-go/blade"
	"github.com/blade-go/blade/pkg/web"
)

// Server serves a blade application over HTTP.
type Server struct {
	app     *blade.Blade
	config  *ServerConfig
	router  chi.Router
	metrics *Metrics
	tracing *tracing
	logger  *slog.Logger

	inflight *inflight

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server for app. A nil config uses DefaultServerConfig.
func New(app *blade.Blade, config *ServerConfig) *Server {
	config = config.withDefaults()
	logger := config.Logger
	if logger == nil {
		logger = app.Logger()
	}

	s := &Server{
		app:     app,
		config:  config,
		metrics: NewMetrics(config.Metrics...),
		tracing: newTracing(config.Tracing...),
		logger:  logger.With("component", "server"),

		inflight: newInflight(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if config.MetricsPath != "" {
		r.Handle(config.MetricsPath, s.metrics.Handler())
	}
	r.Handle("/*", http.HandlerFunc(s.dispatch))
	s.router = r
	return s
}

// Handler returns the server's http.Handler for mounting elsewhere.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// dispatch matches a request against the route table and runs its plan.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	method, ok := web.ParseMethod(r.Method)
	if !ok || !method.IsRequest() {
		s.notFound(w, r)
		return
	}
	plan, ok := s.app.Match(method, r.URL.EscapedPath())
	if !ok {
		s.notFound(w, r)
		return
	}

	s.inflight.add()
	defer s.inflight.done()

	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ctx, span := s.tracing.start(r, plan)
	c := web.NewContext(ww, r.WithContext(ctx))

	err := s.app.Dispatch(c, plan)
	if err != nil {
		s.logger.Error("dispatch failed",
			"method", r.Method,
			"path", plan.Path,
			"route", plan.Handler.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		if ww.Status() == 0 {
			http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	finishSpan(span, status, err)
	span.End()
	s.metrics.observeDispatch(method, plan.Handler.Path, status, err, time.Since(start))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.metrics.observeNotFound(r.Method)
	s.logger.Debug("no route", "method", r.Method, "path", r.URL.Path)
	http.NotFound(w, r)
}

// Run initializes the application if needed and serves on the configured
// address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. When ctx is done the server
// drains in-flight requests, then destroys the application.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.app.Initialized() {
		if err := s.app.Init(ctx); err != nil {
			ln.Close()
			return err
		}
	}
	s.metrics.ObserveApp(s.app)

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.inflight.wait(context.Background())
		s.app.Destroy()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		err := s.Shutdown(context.Background())
		<-errCh
		return err
	}
}

// Shutdown drains in-flight requests within the configured timeout, then
// destroys the application. When requests are still running at the
// deadline the server is closed and the error returned; the application is
// destroyed once the last of them finishes.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	if err == nil {
		err = s.inflight.wait(ctx)
	}
	if err != nil {
		s.logger.Error("shutdown did not drain", "error", err, "in_flight", s.inflight.count())
		if srv != nil {
			srv.Close()
		}
		go func() {
			s.inflight.wait(context.Background())
			s.app.Destroy()
			s.logger.Info("application destroyed after drain")
		}()
		return err
	}

	s.app.Destroy()
	s.logger.Info("server shutdown complete")
	return nil
}
