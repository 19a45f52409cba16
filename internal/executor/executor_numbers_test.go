package executor_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
	executor "github.com/hanpama/trellis/internal/executor"
	ir "github.com/hanpama/trellis/internal/ir"
	numbers "github.com/hanpama/trellis/internal/numbers"
)

func newNumbersExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	a, err := numbers.New()
	require.NoError(t, err)
	s, err := numbers.Schema()
	require.NoError(t, err)
	return executor.NewExecutor(a, s)
}

func execute(t *testing.T, query string, args map[string]any) []map[string]any {
	t.Helper()
	rows, err := newNumbersExecutor(t).Execute(context.Background(), query, args)
	require.NoError(t, err)
	got, err := executor.Collect(rows)
	require.NoError(t, err)
	out := make([]map[string]any, len(got))
	for i, r := range got {
		out[i] = r.ToGo()
	}
	return out
}

func values(rows []map[string]any, name string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[name]
	}
	return out
}

func ints(xs ...int64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  map[string]any
		want  []map[string]any
	}{
		{
			name:  "numbers with names",
			query: `{ Number(max: 4) { value @output name @output } }`,
			want: []map[string]any{
				{"value": int64(0), "name": "zero"},
				{"value": int64(1), "name": "one"},
				{"value": int64(2), "name": "two"},
				{"value": int64(3), "name": "three"},
			},
		},
		{
			name:  "one_of filter",
			query: `{ Number(max: 10) { value @output @filter(op: "one_of", value: ["$numbers"]) } }`,
			args:  map[string]any{"numbers": []int{1, 3, 4, 5}},
			want: []map[string]any{
				{"value": int64(1)}, {"value": int64(3)}, {"value": int64(4)}, {"value": int64(5)},
			},
		},
		{
			name:  "neighbors expand rows",
			query: `{ Number(max: 4) { value @output multiple(max: 3) { mul: value @output } } }`,
			want: []map[string]any{
				{"value": int64(1), "mul": int64(2)},
				{"value": int64(1), "mul": int64(3)},
				{"value": int64(2), "mul": int64(4)},
				{"value": int64(2), "mul": int64(6)},
				{"value": int64(3), "mul": int64(6)},
				{"value": int64(3), "mul": int64(9)},
			},
		},
		{
			name:  "optional edge without neighbor",
			query: `{ Number(max: 3) { value @output predecessor @optional { p: value @output } } }`,
			want: []map[string]any{
				{"value": int64(0), "p": nil},
				{"value": int64(1), "p": int64(0)},
				{"value": int64(2), "p": int64(1)},
			},
		},
		{
			name:  "required edge inside a missing optional",
			query: `{ Zero { predecessor @optional { value @output predecessor { pp: value @output } } } }`,
			want:  []map[string]any{{"value": nil, "pp": nil}},
		},
		{
			name:  "filter inside a missing optional passes",
			query: `{ Zero { predecessor @optional { value @filter(op: "=", value: ["$x"]) @output } } }`,
			args:  map[string]any{"x": 5},
			want:  []map[string]any{{"value": nil}},
		},
		{
			name:  "coercion drops other types",
			query: `{ Number(max: 8) { ... on Prime { value @output } } }`,
			want: []map[string]any{
				{"value": int64(2)}, {"value": int64(3)}, {"value": int64(5)}, {"value": int64(7)},
			},
		},
		{
			name:  "fold attaches lists",
			query: `{ Number(min: 4, max: 7) { ... on Composite { value @output divisor @fold { d: value @output } } } }`,
			want: []map[string]any{
				{"value": int64(4), "d": ints(1, 2)},
				{"value": int64(6), "d": ints(1, 2, 3)},
			},
		},
		{
			name:  "fold without neighbors keeps rows",
			query: `{ Number(max: 2) { value @output multiple(max: 1) @fold { m: value @output } } }`,
			want: []map[string]any{
				{"value": int64(0), "m": []any{}},
				{"value": int64(1), "m": []any{}},
			},
		},
		{
			name: "nested folds",
			query: `{ Four { ... on Composite { divisor @fold { d: value @output successor @fold { s: value @output } } } } }`,
			want: []map[string]any{
				{"d": ints(1, 2), "s": []any{ints(2), ints(3)}},
			},
		},
		{
			name:  "tag from an earlier vertex",
			query: `{ Number(max: 5) { name @tag(name: "n") value @output successor { name @filter(op: "<", value: ["%n"]) } } }`,
			want: []map[string]any{
				{"value": int64(0)}, {"value": int64(2)}, {"value": int64(3)}, {"value": int64(4)},
			},
		},
		{
			name: "tag from a missing optional",
			query: `{ Number(max: 3) {
				value @output
				predecessor @optional { value @tag(name: "p") }
				successor { s: value @output @filter(op: "<", value: ["%p"]) }
			} }`,
			want: []map[string]any{{"value": int64(0), "s": int64(1)}},
		},
		{
			name:  "recurse",
			query: `{ Four { predecessor @recurse(depth: 2) { value @output } } }`,
			want:  []map[string]any{{"value": int64(4)}, {"value": int64(3)}, {"value": int64(2)}},
		},
		{
			name:  "recurse depth zero",
			query: `{ Four { predecessor @recurse(depth: 0) { value @output } } }`,
			want:  []map[string]any{{"value": int64(4)}},
		},
		{
			name:  "recurse stops at missing neighbors",
			query: `{ One { predecessor @recurse(depth: 3) { value @output } } }`,
			want:  []map[string]any{{"value": int64(1)}, {"value": int64(0)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := execute(t, tt.query, tt.args)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNumbersInOrder(t *testing.T) {
	got := execute(t, `{ Number(max: 10) { value @output name @output } }`, nil)
	require.Len(t, got, 10)
	require.Equal(t, ints(0, 1, 2, 3, 4, 5, 6, 7, 8, 9), values(got, "value"))
	require.Equal(t, "nine", got[9]["name"])
}

func TestRecurseIsDepthFirstWithoutDedup(t *testing.T) {
	got := execute(t, `{ Four { ... on Composite { multiple(max: 3) @recurse(depth: 2) { value @output } } } }`, nil)
	require.Equal(t, ints(4, 8, 16, 24, 12, 24, 36), values(got, "value"))
}

func TestRecurseWithImplicitCoercion(t *testing.T) {
	got := execute(t, `{ Number(min: 12, max: 13) { ... on Composite { divisor @recurse(depth: 2) { value @output } } } }`, nil)
	require.Equal(t, ints(12, 1, 2, 3, 4, 1, 2, 6, 1, 2, 3), values(got, "value"))
}

func TestRecurseThroughSupertypeEdge(t *testing.T) {
	got := execute(t, `{ Four { ... on Composite { predecessor @recurse(depth: 3) { value @output } } } }`, nil)
	require.Equal(t, ints(4, 3, 2, 1), values(got, "value"))
}

func TestVowels(t *testing.T) {
	got := execute(t, `{ Number(min: 3, max: 5) { vowelsInName @output } }`, nil)
	require.Equal(t, []any{[]any{"e", "e"}, []any{"o", "u"}}, values(got, "vowelsInName"))
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  map[string]any
		kind  string
	}{
		{"malformed query", `{ Number(max: 10) { value @output `, nil, "ParseError"},
		{"unknown property", `{ Number(max: 10) { nonexistent @output } }`, nil, "ValidationError"},
		{"duplicate output", `{ Number(max: 10) { value @output @output } }`, nil, "FrontendError"},
		{"unbound variable", `{ Number(max: 10) { value @output @filter(op: "=", value: ["$v"]) } }`, nil, "QueryArgumentsError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := newNumbersExecutor(t).Execute(context.Background(), tt.query, tt.args)
			require.Nil(t, rows)
			require.Error(t, err)
			require.Equal(t, tt.kind, ir.Kind(err))
			require.Equal(t, tt.kind, executor.ErrorKind(err))
		})
	}
}

func TestEarlyTermination(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var calls []events.AdapterCall
	var finish []events.QueryFinish
	eventbus.Subscribe(func(_ context.Context, e events.AdapterCall) { calls = append(calls, e) })
	eventbus.Subscribe(func(_ context.Context, e events.QueryFinish) { finish = append(finish, e) })

	rows, err := newNumbersExecutor(t).Execute(context.Background(), `{ Number(max: 1000000000) { value @output } }`, nil)
	require.NoError(t, err)
	var got []any
	for row, err := range rows {
		require.NoError(t, err)
		got = append(got, row.ToGo()["value"])
		if len(got) == 3 {
			break
		}
	}
	require.Equal(t, ints(0, 1, 2), got)
	require.Equal(t, []events.AdapterCall{
		{Method: executor.MethodResolveProperty, TypeName: "Number", Field: "value"},
		{Method: executor.MethodResolveStartingVertices, Field: "Number"},
	}, calls)
	require.Len(t, finish, 1)
	require.Equal(t, 3, finish[0].Rows)
	require.Empty(t, finish[0].Kind)
}

func TestQueryEventsOnEagerError(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var started int
	var finish []events.QueryFinish
	eventbus.Subscribe(func(context.Context, events.QueryStart) { started++ })
	eventbus.Subscribe(func(_ context.Context, e events.QueryFinish) { finish = append(finish, e) })

	_, err := newNumbersExecutor(t).Execute(context.Background(), `{ Number(max: 1) { nope @output } }`, nil)
	require.Error(t, err)
	require.Equal(t, 1, started)
	require.Len(t, finish, 1)
	require.Equal(t, "ValidationError", finish[0].Kind)
}

func TestTypename(t *testing.T) {
	got := execute(t, `{ Number(max: 5) { __typename @output } }`, nil)
	require.Equal(t, []any{"Neither", "Neither", "Prime", "Prime", "Composite"}, values(got, "__typename"))
}
