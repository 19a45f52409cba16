package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
	executor "github.com/hanpama/trellis/internal/executor"
	reqid "github.com/hanpama/trellis/internal/reqid"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
)

// Handler is an http.Handler that serves queries over HTTP.
//
//	POST /query    {"query": "...", "arguments": {...}} -> {"rows": [...]}
//	GET  /query    ?query=...&arguments={...}
//	GET  /schema   the schema SDL
//	GET  /healthz
//	GET  /metrics  when WithMetrics is given
//
// Clients sending "Accept: application/x-ndjson" receive one JSON row per
// line as rows are produced.
type Handler struct {
	exec    *executor.Executor
	opt     Options
	limiter *rate.Limiter
	sdl     []byte
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// RateLimit is the sustained number of queries per second accepted on
	// /query, with bursts of up to Burst. 0 means unlimited.
	RateLimit rate.Limit
	Burst     int

	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Options) { o.RateLimit, o.Burst = rate.Limit(perSecond), burst }
}
func WithMetrics(h http.Handler) Option { return func(o *Options) { o.Metrics = h } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler executing queries with exec.
func New(exec *executor.Executor, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{exec: exec, opt: op, sdl: []byte(schema.Render(exec.Schema()))}
	if op.RateLimit > 0 {
		h.limiter = rate.NewLimiter(op.RateLimit, max(op.Burst, 1))
	}
	return h
}

// statusWriter records the status code written through it and the kind of
// the error reported in the body, if any.
type statusWriter struct {
	http.ResponseWriter
	status int
	kind   string
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get("X-Request-ID"))
	rw.Header().Set("X-Request-ID", rid)
	w := &statusWriter{ResponseWriter: rw, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r, RequestID: rid})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:   r,
			RequestID: rid,
			Status:    w.status,
			Kind:      w.kind,
			Duration:  time.Since(start),
		})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.URL.Path {
	case "/query":
		if r.Method != http.MethodPost && r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "BadRequest", "method not allowed")
			return
		}
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			h.writeError(w, http.StatusTooManyRequests, "RateLimited", "too many requests")
			return
		}
		h.serveQuery(ctx, w, r)
	case "/schema":
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "BadRequest", "method not allowed")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(h.sdl)
	case "/healthz":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, false)
	case "/metrics":
		if h.opt.Metrics == nil {
			h.writeError(w, http.StatusNotFound, "BadRequest", "not found")
			return
		}
		h.opt.Metrics.ServeHTTP(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "BadRequest", "not found")
	}
}

func (h *Handler) serveQuery(ctx context.Context, w *statusWriter, r *http.Request) {
	req, status, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		h.writeError(w, status, "BadRequest", err.Error())
		return
	}

	rows, err := h.exec.Execute(ctx, req.Query, req.Arguments)
	if err != nil {
		kind := executor.ErrorKind(err)
		h.writeError(w, statusFor(kind), kind, err.Error())
		return
	}

	if acceptsNDJSON(r.Header.Get("Accept")) {
		streamRows(w, rows)
		return
	}

	out := make([]value.Row, 0)
	for row, err := range rows {
		if err != nil {
			kind := executor.ErrorKind(err)
			w.kind = kind
			writeJSON(w, statusFor(kind), queryResponse{Rows: out, Errors: []responseError{{Kind: kind, Message: err.Error()}}}, h.opt.Pretty)
			return
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, queryResponse{Rows: out}, h.opt.Pretty)
}

// streamRows writes one row per line, flushing after each. A failure after
// the first row can no longer change the status code; it ends the stream
// with an errors line.
func streamRows(w *statusWriter, rows iter.Seq2[value.Row, error]) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	for row, err := range rows {
		if err != nil {
			w.kind = executor.ErrorKind(err)
			_ = enc.Encode(response{Errors: []responseError{{Kind: w.kind, Message: err.Error()}}})
			return
		}
		if enc.Encode(row) != nil {
			return
		}
		w.Flush()
	}
}

// statusFor maps an error kind onto an HTTP status: query mistakes are the
// client's, everything else is the server's.
func statusFor(kind string) int {
	switch kind {
	case "ParseError", "ValidationError", "FrontendError", "QueryArgumentsError":
		return http.StatusBadRequest
	case "Canceled":
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ------------------ Request parsing ------------------

type Request struct {
	Query     string         `json:"query"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

var errBodyTooLarge = errors.New("body too large")

func decodeArguments(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	return args, nil
}

func parseRequest(r *http.Request, maxBody int64) (Request, int, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return Request{}, http.StatusBadRequest, errors.New("missing 'query'")
		}
		req := Request{Query: q}
		if a := r.URL.Query().Get("arguments"); a != "" {
			args, err := decodeArguments([]byte(a))
			if err != nil {
				return Request{}, http.StatusBadRequest, errors.New("invalid 'arguments' JSON")
			}
			req.Arguments = args
		}
		return req, 0, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return Request{}, http.StatusUnsupportedMediaType, errors.New("unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Request{}, http.StatusBadRequest, errors.New("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return Request{}, http.StatusRequestEntityTooLarge, errBodyTooLarge
	}

	var raw struct {
		Query     string          `json:"query"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, http.StatusBadRequest, errors.New("invalid JSON")
	}
	if raw.Query == "" {
		return Request{}, http.StatusBadRequest, errors.New("missing 'query'")
	}
	req := Request{Query: raw.Query}
	if len(raw.Arguments) > 0 && string(raw.Arguments) != "null" {
		if req.Arguments, err = decodeArguments(raw.Arguments); err != nil {
			return Request{}, http.StatusBadRequest, errors.New("invalid 'arguments': expected an object")
		}
	}
	return req, 0, nil
}

// ------------------ Response formatting ------------------

type responseError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type response struct {
	Errors []responseError `json:"errors"`
}

// queryResponse always carries rows, possibly the ones produced before a
// failure.
type queryResponse struct {
	Rows   []value.Row     `json:"rows"`
	Errors []responseError `json:"errors,omitempty"`
}

func (h *Handler) writeError(w *statusWriter, status int, kind, msg string) {
	w.kind = kind
	writeJSON(w, status, response{Errors: []responseError{{Kind: kind, Message: msg}}}, h.opt.Pretty)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func acceptsNDJSON(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		if strings.HasPrefix(strings.TrimSpace(p), "application/x-ndjson") {
			return true
		}
	}
	return false
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
