package server

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

// Default tracer name.
const defaultTracerName = "blade"

// TracingConfig configures dispatch spans.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "blade").
	TracerName string

	// Provider is the tracer provider (default: otel.GetTracerProvider()).
	Provider trace.TracerProvider

	// Filter determines which requests to trace.
	// If nil, all dispatched requests are traced.
	Filter func(r *http.Request) bool

	// AttributeExtractor adds custom attributes from the request.
	AttributeExtractor func(r *http.Request) []attribute.KeyValue
}

// TracingOption configures dispatch spans.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = tp
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(r *http.Request) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(r *http.Request) []attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.AttributeExtractor = extractor
	}
}

type tracing struct {
	config TracingConfig
	tracer trace.Tracer
}

func newTracing(opts ...TracingOption) *tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	return &tracing{config: config, tracer: config.Provider.Tracer(config.TracerName)}
}

// start opens a server span named after the matched route. The returned
// context carries the span; handlers reach it through web.Context.Context.
// Filtered requests get a no-op span.
func (t *tracing) start(r *http.Request, plan *route.Plan) (context.Context, trace.Span) {
	if t.config.Filter != nil && !t.config.Filter(r) {
		return r.Context(), trace.SpanFromContext(context.Background())
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.method", r.Method),
		attribute.String("blade.path", plan.Path),
		attribute.String("blade.route", plan.Handler.Path),
		attribute.String("blade.handler", plan.Handler.Name()),
		attribute.Int("blade.before", len(plan.Before)),
		attribute.Int("blade.after", len(plan.After)),
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(r)...)
	}

	return t.tracer.Start(r.Context(), string(plan.Method)+" "+plan.Handler.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

func finishSpan(span trace.Span, status int, err error) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, http.StatusText(status))
	default:
		span.SetStatus(codes.Ok, "")
	}
}

// SpanFromContext returns the dispatch span of a request. It is a no-op
// span when tracing is filtered out or the context has no request.
func SpanFromContext(c *web.Context) trace.Span {
	return trace.SpanFromContext(c.Context())
}
