package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
	reqid "github.com/hanpama/trellis/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(otel.Tracer("trellis"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans for HTTP requests and queries with tracer. Query
// spans become children of the HTTP span sharing their request ID.
func Subscribe(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer     trace.Tracer
	httpSpans  sync.Map // rid -> trace.Span
	querySpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("request.id", rid),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Kind != "" {
				span.SetAttributes(attribute.String("error.kind", e.Kind))
			}
			if e.Status >= 500 {
				span.SetStatus(codes.Error, e.Kind)
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.QueryStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			if v, ok := s.httpSpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "trellis.query")
			span.SetAttributes(
				attribute.String("trellis.query.start_edge", e.StartEdge),
				attribute.Int("trellis.query.arguments", len(e.Arguments)),
			)
			s.querySpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.AdapterCall) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.querySpans.Load(rid)
			if !ok {
				return
			}
			v.(trace.Span).AddEvent("adapter.call", trace.WithAttributes(
				attribute.String("trellis.adapter.method", e.Method),
				attribute.String("trellis.adapter.type", e.TypeName),
				attribute.String("trellis.adapter.field", e.Field),
			))
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.QueryFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.querySpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("trellis.query.rows", e.Rows))
			if e.Err != nil {
				span.SetAttributes(attribute.String("trellis.error.kind", e.Kind))
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Kind)
			}
			span.End()
		}),
	}
	return func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}
}
