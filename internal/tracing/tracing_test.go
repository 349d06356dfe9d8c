package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/skierload/internal/config"
	"github.com/torosent/skierload/internal/tracing"
)

func boolPtr(b bool) *bool { return &b }

func TestInit(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.TracingConfig
		wantErr       string
		wantPropagate bool
	}{
		{name: "disabled", cfg: config.TracingConfig{}},
		{
			name:          "grpc exporter",
			cfg:           config.TracingConfig{Endpoint: "localhost:4317", Protocol: "grpc", ServiceName: "lift-load", SampleRate: 1, Insecure: true},
			wantPropagate: true,
		},
		{
			name:          "http exporter with ratio sampling",
			cfg:           config.TracingConfig{Endpoint: "localhost:4318", Protocol: "HTTP", SampleRate: 0.5, Insecure: true},
			wantPropagate: true,
		},
		{
			name: "export without propagation",
			cfg:  config.TracingConfig{Endpoint: "localhost:4317", Insecure: true, Propagate: boolPtr(false)},
		},
		{
			name:          "propagation without export",
			cfg:           config.TracingConfig{Propagate: boolPtr(true)},
			wantPropagate: true,
		},
		{
			name:    "unknown protocol",
			cfg:     config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift", SampleRate: 1},
			wantErr: "unsupported OTLP protocol",
		},
		{
			name:    "negative sample rate",
			cfg:     config.TracingConfig{Endpoint: "localhost:4317", SampleRate: -0.5},
			wantErr: "sample_rate",
		},
		{
			name:    "sample rate above one",
			cfg:     config.TracingConfig{Endpoint: "localhost:4317", SampleRate: 1.5},
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			p, err := tracing.Init(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Init() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
			if got := p.ShouldPropagate(); got != tt.wantPropagate {
				t.Errorf("ShouldPropagate() = %v, want %v", got, tt.wantPropagate)
			}
		})
	}
}

func TestDisabledProviderHandsOutNoopTracer(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatal(err)
	}
	_, span := p.Tracer().Start(context.Background(), "POST /liftrides")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled provider produced a recording span")
	}
}

func TestNilProvider(t *testing.T) {
	var p *tracing.Provider
	if p.ShouldPropagate() {
		t.Error("nil provider should not propagate")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "GET /liftrides/{id}")
	span.End()
}

func recordingProvider(t *testing.T) (*tracetest.InMemoryExporter, *tracing.Provider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	p := tracing.NewProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)), true)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return exporter, p
}

func attr(attrs []attribute.KeyValue, key string) string {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestRequestSpans(t *testing.T) {
	exporter, p := recordingProvider(t)

	_, write := tracing.StartRequestSpan(context.Background(), p.Tracer(), "write", http.MethodPost, "/liftrides")
	write.End(201, nil, attribute.Int("skierload.skier_id", 17))
	_, read := tracing.StartRequestSpan(context.Background(), p.Tracer(), "read", http.MethodGet, "/liftrides/{id}")
	read.End(0, errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	w, r := spans[0], spans[1]
	if w.Name != "POST /liftrides" || r.Name != "GET /liftrides/{id}" {
		t.Errorf("span names = %q, %q", w.Name, r.Name)
	}
	if w.SpanKind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", w.SpanKind)
	}
	if got := attr(w.Attributes, "skierload.operation"); got != "write" {
		t.Errorf("write operation attribute = %q", got)
	}
	if got := attr(w.Attributes, "http.response.status_code"); got != "201" {
		t.Errorf("status attribute = %q, want 201", got)
	}
	if w.Status.Code != codes.Ok {
		t.Errorf("write status = %v, want Ok", w.Status.Code)
	}
	if got := attr(r.Attributes, "http.response.status_code"); got != "" {
		t.Errorf("read without a response has status attribute %q", got)
	}
	if got := attr(w.Attributes, "skierload.skier_id"); got != "17" {
		t.Errorf("skier attribute = %q, want 17", got)
	}
	if r.Status.Code != codes.Error || r.Status.Description != "connection refused" {
		t.Errorf("read status = %+v, want error", r.Status)
	}
	if len(r.Events) == 0 {
		t.Error("read span should carry the recorded error event")
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	_, p := recordingProvider(t)

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(context.Background(), headers)
	if got := headers.Get("Traceparent"); got != "" {
		t.Errorf("traceparent without a span = %q, want empty", got)
	}

	ctx, span := p.Tracer().Start(context.Background(), "POST /liftrides")
	defer span.End()
	tracing.InjectHTTPHeaders(ctx, headers)

	parts := strings.Split(headers.Get("Traceparent"), "-")
	if len(parts) != 4 || parts[1] != span.SpanContext().TraceID().String() {
		t.Errorf("traceparent = %q, want trace id %s", headers.Get("Traceparent"), span.SpanContext().TraceID())
	}
}
