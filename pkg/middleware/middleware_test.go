package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func testRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw...)
	r.Get("/stack", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/close/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "0" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestPrometheusRecordsRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	r := testRouter(m.Handler)

	serve(r, http.MethodGet, "/stack")
	serve(r, http.MethodPost, "/close/4")
	serve(r, http.MethodPost, "/close/7")
	serve(r, http.MethodPost, "/close/0")
	serve(r, http.MethodGet, "/missing")

	tests := []struct {
		method, route, status string
		want                  float64
	}{
		{"GET", "/stack", "2xx", 1},
		{"POST", "/close/{id}", "2xx", 2},
		{"POST", "/close/{id}", "5xx", 1},
		{"GET", "unmatched", "4xx", 1},
	}
	for _, tt := range tests {
		got := metricCounterValue(t, m.requests.WithLabelValues(tt.method, tt.route, tt.status))
		if got != tt.want {
			t.Errorf("requests_total{%s,%s,%s} = %v, want %v", tt.method, tt.route, tt.status, got, tt.want)
		}
	}
	if got := metricHistogramCount(t, m.duration.WithLabelValues("POST", "/close/{id}")); got != 3 {
		t.Errorf("duration count = %d, want 3", got)
	}
	if got := metricGaugeValue(t, m.inFlight); got != 0 {
		t.Errorf("in flight = %v after requests finished", got)
	}
}

func TestPrometheusNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := testRouter(Prometheus(WithRegistry(reg), WithNamespace("demo"), WithSubsystem("")))
	serve(r, http.MethodGet, "/stack")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "demo_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("demo_requests_total not registered")
	}
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{0: "2xx", 200: "2xx", 204: "2xx", 404: "4xx", 503: "5xx"} {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

type recordingTracer struct {
	noop.Tracer

	mu    sync.Mutex
	names []string
	attrs []attribute.KeyValue
}

func (rt *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	rt.mu.Lock()
	rt.names = append(rt.names, name)
	rt.attrs = append(rt.attrs, cfg.Attributes()...)
	rt.mu.Unlock()
	return rt.Tracer.Start(ctx, name, opts...)
}

func TestOpenTelemetryStartsServerSpans(t *testing.T) {
	tracer := &recordingTracer{}
	var inHandler trace.Span
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(OpenTelemetry(
		WithTracer(tracer),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
		WithFilter(func(r *http.Request) bool { return r.URL.Path != "/ws" }),
	))
	r.Get("/stack", func(w http.ResponseWriter, r *http.Request) {
		inHandler = SpanFromRequest(r)
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {})

	serve(r, http.MethodGet, "/stack")
	serve(r, http.MethodGet, "/ws")

	if len(tracer.names) != 1 || tracer.names[0] != "GET /stack" {
		t.Fatalf("spans = %v", tracer.names)
	}
	if inHandler == nil {
		t.Fatal("no span in handler context")
	}
	keys := map[attribute.Key]bool{}
	for _, kv := range tracer.attrs {
		keys[kv.Key] = true
	}
	for _, k := range []attribute.Key{"http.method", "http.target", "http.request_id", "test.attr"} {
		if !keys[k] {
			t.Errorf("missing attribute %s", k)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := testRouter(Logger(logger))

	serve(r, http.MethodPost, "/close/3")
	serve(r, http.MethodPost, "/close/0")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"level=INFO", "route=/close/{id}", "status=204", "request_id="} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("first line missing %q: %s", want, lines[0])
		}
	}
	if !strings.Contains(lines[1], "level=ERROR") || !strings.Contains(lines[1], "status=500") {
		t.Errorf("second line = %s", lines[1])
	}
}
