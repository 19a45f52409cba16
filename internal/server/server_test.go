package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
	executor "github.com/hanpama/trellis/internal/executor"
	numbers "github.com/hanpama/trellis/internal/numbers"
	value "github.com/hanpama/trellis/internal/value"
)

func newTestExecutor(t *testing.T, wrap func(*numbers.Adapter) executor.Adapter) *executor.Executor {
	t.Helper()
	a, err := numbers.New()
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	s, err := numbers.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if wrap != nil {
		return executor.NewExecutor(wrap(a), s)
	}
	return executor.NewExecutor(a, s)
}

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	return New(newTestExecutor(t, nil), opts...)
}

func post(h http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type decoded struct {
	Rows   []map[string]any `json:"rows"`
	Errors []responseError  `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) decoded {
	t.Helper()
	var out decoded
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestQueryRows(t *testing.T) {
	h := newTestHandler(t)
	w := post(h, `{"query":"{ Number(max: 3) { value @output name @output } }"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if len(out.Rows) != 3 || out.Rows[2]["value"] != float64(2) || out.Rows[2]["name"] != "two" {
		t.Fatalf("unexpected rows: %v", out.Rows)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
}

func TestQueryArguments(t *testing.T) {
	h := newTestHandler(t)
	w := post(h, `{"query":"{ Number(max: 10) { value @output @filter(op: \">=\", value: [\"$min\"]) } }","arguments":{"min":8}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if len(out.Rows) != 2 || out.Rows[0]["value"] != float64(8) {
		t.Fatalf("unexpected rows: %v", out.Rows)
	}
}

func TestQueryEmptyResultIsAnArray(t *testing.T) {
	h := newTestHandler(t)
	w := post(h, `{"query":"{ Number(max: 0) { value @output } }"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"rows":[]}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestQueryGET(t *testing.T) {
	h := newTestHandler(t)
	q := url.Values{"query": {"{ Two { value @output } }"}}
	req := httptest.NewRequest("GET", "/query?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if len(out.Rows) != 1 || out.Rows[0]["value"] != float64(2) {
		t.Fatalf("unexpected rows: %v", out.Rows)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "BadRequest"},
		{"missing query", `{"arguments":{}}`, http.StatusBadRequest, "BadRequest"},
		{"bad arguments", `{"query":"{ Two { value @output } }","arguments":[1]}`, http.StatusBadRequest, "BadRequest"},
		{"parse error", `{"query":"{ Two { value @output "}`, http.StatusBadRequest, "ParseError"},
		{"validation error", `{"query":"{ Two { nope @output } }"}`, http.StatusBadRequest, "ValidationError"},
		{"frontend error", `{"query":"{ Two { value @output @output } }"}`, http.StatusBadRequest, "FrontendError"},
		{"missing argument", `{"query":"{ Two { value @filter(op: \"=\", value: [\"$x\"]) @output } }"}`, http.StatusBadRequest, "QueryArgumentsError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(newTestHandler(t), tt.body)
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			out := decode(t, w)
			if len(out.Errors) != 1 || out.Errors[0].Kind != tt.kind {
				t.Fatalf("errors %v, want kind %s", out.Errors, tt.kind)
			}
		})
	}
}

// failingAdapter fails property resolution once the third vertex arrives.
type failingAdapter struct {
	*numbers.Adapter
}

func (a failingAdapter) ResolveProperty(ctx context.Context, contexts executor.ContextIterator, typeName, property string) executor.PropertyIterator {
	return executor.ResolvePropertyWith(contexts, func(v executor.Vertex) value.Value {
		if v.(numbers.Number) == 2 {
			executor.ReportError(ctx, errors.New("boom"))
		}
		return value.Int(int64(v.(numbers.Number)))
	})
}

func TestAdapterErrorKeepsPartialRows(t *testing.T) {
	exec := newTestExecutor(t, func(a *numbers.Adapter) executor.Adapter { return failingAdapter{a} })
	w := post(New(exec), `{"query":"{ Number(max: 5) { value @output } }"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if len(out.Rows) != 2 {
		t.Fatalf("expected the two rows produced before the failure, got %v", out.Rows)
	}
	if len(out.Errors) != 1 || out.Errors[0].Kind != "AdapterError" || !strings.Contains(out.Errors[0].Message, "boom") {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
}

func TestNDJSON(t *testing.T) {
	h := newTestHandler(t)
	w := post(h, `{"query":"{ Number(max: 3) { value @output } }"}`, "Accept", "application/x-ndjson")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content type %q", ct)
	}
	var lines []string
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	want := []string{`{"value":0}`, `{"value":1}`, `{"value":2}`}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("lines %q, want %q", lines, want)
	}
}

func TestNDJSONErrorLine(t *testing.T) {
	exec := newTestExecutor(t, func(a *numbers.Adapter) executor.Adapter { return failingAdapter{a} })
	w := post(New(exec), `{"query":"{ Number(max: 5) { value @output } }"}`, "Accept", "application/x-ndjson")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected two rows and an error line, got %q", lines)
	}
	if !strings.Contains(lines[2], `"kind":"AdapterError"`) {
		t.Fatalf("last line %q", lines[2])
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	req := httptest.NewRequest("OPTIONS", "/query", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing allow origin")
	}
	if w.Header().Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Fatalf("allow headers %q", w.Header().Get("Access-Control-Allow-Headers"))
	}

	w = post(h, `{"query":"{ Two { value @output } }"}`, "Origin", "http://example.com")
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("cors on post: %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, WithCORS("http://a.test"))
	w := post(h, `{"query":"{ Two { value @output } }"}`, "Origin", "http://b.test")
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("origin should not be allowed")
	}
	w = post(h, `{"query":"{ Two { value @output } }"}`, "Origin", "http://a.test")
	if w.Header().Get("Access-Control-Allow-Origin") != "http://a.test" || w.Header().Get("Vary") != "Origin" {
		t.Fatalf("unexpected headers: %v", w.Header())
	}
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))
	w := post(h, `{"query":"{ Two { value @output } }"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d", w.Code)
	}
}

func TestUnsupportedContentType(t *testing.T) {
	h := newTestHandler(t)
	w := post(h, `query`, "Content-Type", "text/plain")
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t)
	w := post(h, `{"query":"{ Two { value @output } }"}`, "X-Request-ID", "abc")
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("request id %q", got)
	}
	w = post(h, `{"query":"{ Two { value @output } }"}`)
	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestHandler(t, WithRateLimit(0.001, 1))
	if w := post(h, `{"query":"{ Two { value @output } }"}`); w.Code != http.StatusOK {
		t.Fatalf("first request status %d", w.Code)
	}
	w := post(h, `{"query":"{ Two { value @output } }"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestSchemaAndHealth(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/schema", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "type RootSchemaQuery") {
		t.Fatalf("schema: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown path status %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("DELETE", "/query", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method status %d", w.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler: %d", w.Code)
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	w = httptest.NewRecorder()
	newTestHandler(t, WithMetrics(metrics)).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Body.String() != "ok" {
		t.Fatalf("metrics body %q", w.Body.String())
	}
}

func TestPrettyJSON(t *testing.T) {
	h := newTestHandler(t, WithPretty())
	w := post(h, `{"query":"{ Two { value @output } }"}`)
	if !strings.Contains(w.Body.String(), "\n  ") {
		t.Fatalf("expected indented output: %s", w.Body.String())
	}
}

func TestHTTPEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var starts []events.HTTPStart
	var finishes []events.HTTPFinish
	t.Cleanup(eventbus.Subscribe(func(_ context.Context, e events.HTTPStart) { starts = append(starts, e) }))
	t.Cleanup(eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) { finishes = append(finishes, e) }))

	h := newTestHandler(t)
	post(h, `{"query":"{ Two { value @output } }"}`, "X-Request-ID", "ok-1")
	post(h, `{"query":"{ Two { nope @output } }"}`, "X-Request-ID", "bad-1")

	if len(starts) != 2 || starts[0].RequestID != "ok-1" || starts[1].RequestID != "bad-1" {
		t.Fatalf("unexpected start events: %+v", starts)
	}
	if len(finishes) != 2 {
		t.Fatalf("expected 2 finish events, got %d", len(finishes))
	}
	if f := finishes[0]; f.RequestID != "ok-1" || f.Status != http.StatusOK || f.Kind != "" {
		t.Fatalf("unexpected finish event: %+v", f)
	}
	if f := finishes[1]; f.RequestID != "bad-1" || f.Status != http.StatusBadRequest || f.Kind != "ValidationError" {
		t.Fatalf("unexpected finish event: %+v", f)
	}
}
