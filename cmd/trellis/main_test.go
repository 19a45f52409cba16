package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	config "github.com/hanpama/trellis/internal/config"
	eventbus "github.com/hanpama/trellis/internal/eventbus"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestHelp(t *testing.T) {
	out, _, err := runCLI(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"query", "batch", "serve", "schema", "compile-proto"} {
		require.Contains(t, out, name)
	}
}

func TestQueryNumbers(t *testing.T) {
	out, _, err := runCLI(t, "query", "{ Number(max: 3) { value @output name @output } }")
	require.NoError(t, err)
	require.Equal(t, []string{
		`{"name":"zero","value":0}`,
		`{"name":"one","value":1}`,
		`{"name":"two","value":2}`,
	}, lines(out))
}

func TestQueryArguments(t *testing.T) {
	out, _, err := runCLI(t, "query",
		"--arguments", `{"min": 7}`,
		`{ Number(max: 10) { value @output @filter(op: ">=", value: ["$min"]) } }`)
	require.NoError(t, err)
	require.Equal(t, []string{`{"value":7}`, `{"value":8}`, `{"value":9}`}, lines(out))
}

func TestQueryJSONFormat(t *testing.T) {
	out, _, err := runCLI(t, "query", "--format", "json", "{ Two { value @output } }")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Equal(t, []map[string]any{{"value": float64(2)}}, rows)

	out, _, err = runCLI(t, "query", "--format", "json", "{ Number(max: 0) { value @output } }")
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(out))
}

func TestQueryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.graphql")
	require.NoError(t, os.WriteFile(path, []byte("{ Four { value @output } }"), 0o644))
	out, _, err := runCLI(t, "query", "-f", path)
	require.NoError(t, err)
	require.Equal(t, []string{`{"value":4}`}, lines(out))
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"validation", []string{"query", "{ Two { nope @output } }"}, "ValidationError"},
		{"parse", []string{"query", "{ Two { value @output "}, "ParseError"},
		{"bad arguments", []string{"query", "--arguments", "[1]", "{ Two { value @output } }"}, "invalid --arguments"},
		{"bad format", []string{"query", "--format", "csv", "{ Two { value @output } }"}, "invalid format"},
		{"unknown adapter", []string{"--adapter", "mongo", "query", "{ Two { value @output } }"}, `unknown adapter kind "mongo"`},
		{"json adapter without data", []string{"--adapter", "json", "query", "{ Two { value @output } }"}, "adapter json requires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestQueryJSONAdapterFromConfig(t *testing.T) {
	out, _, err := runCLI(t, "--config", filepath.Join("testdata", "people.yaml"),
		"query", "{ people { name @output pet @optional { pet: name @output } } }")
	require.NoError(t, err)
	require.Equal(t, []string{`{"name":"ada","pet":"rex"}`, `{"name":"bob","pet":null}`}, lines(out))
}

func TestQueryJSONAdapterFromFlags(t *testing.T) {
	out, _, err := runCLI(t,
		"--adapter", "json",
		"--schema", filepath.Join("testdata", "people.graphql"),
		"--data", filepath.Join("testdata", "people.json"),
		"query", "{ things { ... on Pet { name @output } } }")
	require.NoError(t, err)
	require.Equal(t, []string{`{"name":"rex"}`}, lines(out))
}

func TestQueryLogsAtDebug(t *testing.T) {
	_, stderr, err := runCLI(t, "--log-level", "debug", "query", "{ Two { value @output } }")
	require.NoError(t, err)
	require.Contains(t, stderr, "adapter call")
	require.Contains(t, stderr, "query finished")
}

func TestBatch(t *testing.T) {
	out, _, err := runCLI(t, "batch", "--workers", "2", filepath.Join("testdata", "batch.yaml"))
	require.NoError(t, err)

	var results []batchResult
	for _, line := range lines(out) {
		var r struct {
			Name      string           `json:"name"`
			RequestID string           `json:"request_id"`
			Rows      []map[string]any `json:"rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		require.NotEmpty(t, r.RequestID)
		results = append(results, batchResult{Name: r.Name})
		switch r.Name {
		case "small":
			require.Len(t, r.Rows, 3)
		case "primes":
			require.Equal(t, []map[string]any{
				{"value": float64(2)}, {"value": float64(3)}, {"value": float64(5)}, {"value": float64(7)},
			}, r.Rows)
		case "query-3":
			require.Equal(t, []map[string]any{{"name": "two"}}, r.Rows)
		}
	}
	require.Len(t, results, 3)
	require.Equal(t, "small", results[0].Name)
	require.Equal(t, "primes", results[1].Name)
	require.Equal(t, "query-3", results[2].Name)
}

func TestBatchReportsFailures(t *testing.T) {
	out, _, err := runCLI(t, "batch", filepath.Join("testdata", "broken.yaml"))
	require.ErrorContains(t, err, "1 of 2 queries failed")
	got := lines(out)
	require.Len(t, got, 2)
	require.Contains(t, got[1], `"kind":"ValidationError"`)
}

func TestSchema(t *testing.T) {
	out, _, err := runCLI(t, "schema")
	require.NoError(t, err)
	require.Contains(t, out, "type RootSchemaQuery")
	require.Contains(t, out, "interface Number")

	out, _, err = runCLI(t, "schema", filepath.Join("testdata", "people.graphql"))
	require.NoError(t, err)
	require.Contains(t, out, "type Person implements Named")

	path := filepath.Join(t.TempDir(), "out", "schema.graphql")
	_, _, err = runCLI(t, "schema", "--out", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "type RootSchemaQuery")
}

func TestSchemaViolations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Query { a: Missing }"), 0o644))
	_, _, err := runCLI(t, "schema", path)
	require.Error(t, err)
}

func TestCompileProto(t *testing.T) {
	out, _, err := runCLI(t, "--package", "acme.people", "compile-proto", filepath.Join("testdata", "people.graphql"))
	require.NoError(t, err)
	require.Contains(t, out, "package acme.people;")
	require.Contains(t, out, "message PersonVertex")

	dir := t.TempDir()
	out, _, err = runCLI(t, "--package", "acme.people", "compile-proto", "--out", dir, filepath.Join("testdata", "people.graphql"))
	require.NoError(t, err)
	want := filepath.Join(dir, "acme", "people", "people.proto")
	require.Equal(t, want, strings.TrimSpace(out))
	_, err = os.Stat(want)
	require.NoError(t, err)
}

func TestServeHandler(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	cfg := config.Default()
	cfg.Server.Metrics = true
	exec, release, err := openExecutor(cfg)
	require.NoError(t, err)
	defer release()

	h, detach := newHandler(cfg, exec)
	defer detach()

	req := httptest.NewRequest("POST", "/query", strings.NewReader(`{"query":"{ Two { value @output } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"rows":[{"value":2}]}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "trellis_http_requests_total")
}
