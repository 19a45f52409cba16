package sqladapter_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/trellis/internal/executor"
	schema "github.com/hanpama/trellis/internal/schema"
	sqladapter "github.com/hanpama/trellis/internal/sqladapter"
)

const peopleSchema = `
type Query {
  people(name: String): [Person!]!
  things: [Named!]!
}

interface Named {
  name: String
}

type Person implements Named {
  name: String
  age: Int!
  score: Float
  tags: [String!]
  active: Boolean
  friends: [Person!]
  pet: Pet
}

type Pet implements Named {
  name: String
  weight: Float
}
`

type fixture struct {
	db     *sql.DB
	schema *schema.Schema
	exec   *executor.Executor
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "people.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ddl, err := os.ReadFile(filepath.Join("testdata", "people.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(ddl))
	require.NoError(t, err)
	return db
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s, err := schema.Build("people.graphql", peopleSchema)
	require.NoError(t, err)
	m, err := sqladapter.LoadMapping(filepath.Join("testdata", "people.yaml"))
	require.NoError(t, err)
	db := openDB(t)
	a, err := sqladapter.New(db, s, m)
	require.NoError(t, err)
	return fixture{db: db, schema: s, exec: executor.NewExecutor(a, s)}
}

func (f fixture) run(t *testing.T, query string, args map[string]any) ([]map[string]any, error) {
	t.Helper()
	rows, err := f.exec.Execute(context.Background(), query, args)
	require.NoError(t, err)
	got, err := executor.Collect(rows)
	out := make([]map[string]any, len(got))
	for i, r := range got {
		out[i] = r.ToGo()
	}
	return out, err
}

func TestQueries(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		args  map[string]any
		want  []map[string]any
	}{
		{
			name:  "properties and optional edge",
			query: `{ people { name @output age @output score @output pet @optional { pet: name @output } } }`,
			want: []map[string]any{
				{"name": "ada", "age": int64(36), "score": float64(9), "pet": "rex"},
				{"name": "bob", "age": int64(40), "score": nil, "pet": nil},
				{"name": "cy", "age": int64(20), "score": nil, "pet": "tom"},
			},
		},
		{
			name:  "list and boolean columns",
			query: `{ people { tags @output active @output } }`,
			want: []map[string]any{
				{"tags": []any{"math", "engines"}, "active": true},
				{"tags": nil, "active": false},
				{"tags": nil, "active": nil},
			},
		},
		{
			name:  "fold over a foreign key",
			query: `{ people { name @output friends @fold { friend: name @output } } }`,
			want: []map[string]any{
				{"name": "ada", "friend": []any{"bob", "cy"}},
				{"name": "bob", "friend": []any{}},
				{"name": "cy", "friend": []any{}},
			},
		},
		{
			name:  "starting parameter",
			query: `{ people(name: "bob") { age @output } }`,
			want:  []map[string]any{{"age": int64(40)}},
		},
		{
			name:  "starting parameter from a variable",
			query: `{ people(name: $who) { age @output } }`,
			args:  map[string]any{"who": "cy"},
			want:  []map[string]any{{"age": int64(20)}},
		},
		{
			name:  "coercion with typename and filter",
			query: `{ things { ... on Pet { __typename @output name @output weight @filter(op: "<", value: ["$max"]) } } }`,
			args:  map[string]any{"max": 10},
			want:  []map[string]any{{"__typename": "Pet", "name": "tom"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.run(t, tt.query, tt.args)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEarlyTerminationClosesRows(t *testing.T) {
	f := newFixture(t)
	rows, err := f.exec.Execute(context.Background(), `{ people { name @output friends { friend: name @output } } }`, nil)
	require.NoError(t, err)
	for row, err := range rows {
		require.NoError(t, err)
		require.Equal(t, map[string]any{"name": "ada", "friend": "bob"}, row.ToGo())
		break
	}
	require.Zero(t, f.db.Stats().InUse)
}

func TestMissingColumn(t *testing.T) {
	s, err := schema.Build("people.graphql", peopleSchema)
	require.NoError(t, err)
	m, err := sqladapter.ParseMapping([]byte(`
types:
  Pet: {table: pets, key: id, columns: {name: nickname}}
starting:
  things: {type: Pet}
`))
	require.NoError(t, err)
	a, err := sqladapter.New(openDB(t), s, m)
	require.NoError(t, err)

	rows, err := executor.NewExecutor(a, s).Execute(context.Background(), `{ things { name @output } }`, nil)
	require.NoError(t, err)
	_, err = executor.Collect(rows)
	require.ErrorContains(t, err, `table pets has no column "nickname" for Pet.name`)
	var adapterErr *executor.AdapterError
	require.ErrorAs(t, err, &adapterErr)
}

func TestMappingErrors(t *testing.T) {
	s, err := schema.Build("people.graphql", peopleSchema)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mapping string
		want    string
	}{
		{"unknown key", "types:\n  Pet: {tabel: pets}\n", "field tabel not found"},
		{"unknown type", "types:\n  Robot: {table: robots, key: id}\n", "types.Robot: not an object type"},
		{"interface type", "types:\n  Named: {table: named, key: id}\n", "types.Named: not an object type"},
		{"missing key", "types:\n  Pet: {table: pets}\n", "types.Pet: table and key are required"},
		{"unknown column property", "types:\n  Pet: {table: pets, key: id, columns: {color: c}}\n", "types.Pet.columns.color: not a property of Pet"},
		{"unknown edge", "types:\n  Pet: {table: pets, key: id, edges: {owner: {target: Pet, from: a, to: b}}}\n", "types.Pet.edges.owner: not an edge of Pet"},
		{"unmapped target", "types:\n  Person: {table: people, key: id, edges: {pet: {target: Pet, from: a, to: b}}}\n", `target "Pet" is not mapped`},
		{"wrong target", "types:\n  Pet: {table: pets, key: id}\n  Person: {table: people, key: id, edges: {friends: {target: Pet, from: a, to: b}}}\n", "target Pet is not a Person"},
		{"starting not an edge", "starting:\n  nobody: {type: Pet}\n", "starting.nobody: not a starting edge"},
		{"starting wrong type", "types:\n  Pet: {table: pets, key: id}\nstarting:\n  people: {type: Pet}\n", "starting.people: type Pet is not a Person"},
		{"starting parameter", "types:\n  Pet: {table: pets, key: id}\nstarting:\n  things: {type: Pet, parameters: {color: c}}\n", "starting.things.parameters.color: no such parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := sqladapter.ParseMapping([]byte(tt.mapping))
			if err == nil {
				_, err = sqladapter.New(nil, s, m)
			}
			require.ErrorContains(t, err, tt.want)
		})
	}
}
