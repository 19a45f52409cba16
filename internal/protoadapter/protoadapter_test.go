package protoadapter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"

	executor "github.com/hanpama/trellis/internal/executor"
	protoadapter "github.com/hanpama/trellis/internal/protoadapter"
	protoreg "github.com/hanpama/trellis/internal/protoreg"
	schema "github.com/hanpama/trellis/internal/schema"
)

const peopleSchema = `
type Query {
  people: [Person!]!
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
  friends: [Person!]
  pet: Pet
}

type Pet implements Named {
  name: String
  weight: Float
}
`

type fixture struct {
	schema *schema.Schema
	reg    *protoreg.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s, err := schema.Build("people.graphql", peopleSchema)
	require.NoError(t, err)
	reg, err := protoreg.Build(s, "test.people")
	require.NoError(t, err)
	return fixture{schema: s, reg: reg}
}

func (f fixture) execute(t *testing.T, dataset proto.Message, query string) ([]map[string]any, error) {
	t.Helper()
	a, err := protoadapter.New(f.schema, f.reg, dataset)
	require.NoError(t, err)
	rows, err := executor.NewExecutor(a, f.schema).Execute(context.Background(), query, nil)
	require.NoError(t, err)
	got, err := executor.Collect(rows)
	out := make([]map[string]any, len(got))
	for i, r := range got {
		out[i] = r.ToGo()
	}
	return out, err
}

func (f fixture) dataset(t *testing.T) *dynamicpb.Message {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "people.json"))
	require.NoError(t, err)
	msg, err := protoadapter.DecodeJSON(f.reg, data)
	require.NoError(t, err)
	return msg
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	dataset := f.dataset(t)

	tests := []struct {
		name  string
		query string
		want  []map[string]any
	}{
		{
			name:  "properties and optional edge",
			query: `{ people { name @output age @output score @output pet @optional { pet: name @output } } }`,
			want: []map[string]any{
				{"name": "ada", "age": int64(36), "score": float64(9), "pet": "rex"},
				{"name": "bob", "age": int64(40), "score": nil, "pet": nil},
			},
		},
		{
			name:  "repeated property",
			query: `{ people { tags @output } }`,
			want: []map[string]any{
				{"tags": []any{"math", "engines"}},
				{"tags": []any{}},
			},
		},
		{
			name:  "fold over a repeated edge",
			query: `{ people { name @output friends @fold { friend: name @output } } }`,
			want: []map[string]any{
				{"name": "ada", "friend": []any{"bob"}},
				{"name": "bob", "friend": []any{}},
			},
		},
		{
			name:  "interface vertices are unwrapped",
			query: `{ things { name @output __typename @output } }`,
			want: []map[string]any{
				{"name": "ada", "__typename": "Person"},
				{"name": "rex", "__typename": "Pet"},
			},
		},
		{
			name:  "coercion",
			query: `{ things { ... on Pet { name @output weight @output } } }`,
			want:  []map[string]any{{"name": "rex", "weight": float64(3)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.execute(t, dataset, tt.query)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeBinary(t *testing.T) {
	f := newFixture(t)
	data, err := proto.Marshal(f.dataset(t))
	require.NoError(t, err)

	msg, err := protoadapter.DecodeBinary(f.reg, data)
	require.NoError(t, err)
	got, err := f.execute(t, msg, `{ people { name @output } }`)
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"name": "ada"}, {"name": "bob"}}, got)

	_, err = protoadapter.DecodeBinary(f.reg, []byte{0xff})
	require.Error(t, err)
}

func TestDecodeJSONErrors(t *testing.T) {
	f := newFixture(t)
	_, err := protoadapter.DecodeJSON(f.reg, []byte(`{"nobody": []}`))
	require.Error(t, err)
}

func TestWrongDatasetType(t *testing.T) {
	f := newFixture(t)
	_, err := protoadapter.New(f.schema, f.reg, dynamicpb.NewMessage(f.reg.Message("Person")))
	require.ErrorContains(t, err, "dataset is a test.people.PersonVertex, want test.people.QueryDataset")
}

func TestUntypedInterfaceVertex(t *testing.T) {
	f := newFixture(t)
	msg, err := protoadapter.DecodeJSON(f.reg, []byte(`{"things": [{"pet": {"name": "rex"}}, {}]}`))
	require.NoError(t, err)

	got, err := f.execute(t, msg, `{ things { name @output } }`)
	require.ErrorIs(t, err, protoadapter.ErrUntypedVertex)
	var adapterErr *executor.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	require.Equal(t, executor.MethodResolveStartingVertices, adapterErr.Method)
	require.Equal(t, []map[string]any{{"name": "rex"}}, got)
}
