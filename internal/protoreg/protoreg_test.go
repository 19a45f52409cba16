package protoreg_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	numbers "github.com/hanpama/trellis/internal/numbers"
	protoreg "github.com/hanpama/trellis/internal/protoreg"
)

func buildTestRegistry(t *testing.T) *protoreg.Registry {
	t.Helper()
	s, err := numbers.Schema()
	require.NoError(t, err)
	reg, err := protoreg.Build(s, "trellis.numbers")
	require.NoError(t, err)
	return reg
}

func TestFile(t *testing.T) {
	reg := buildTestRegistry(t)
	assert.Equal(t, "trellis/numbers/numbers.proto", reg.File().Path())
	assert.Equal(t, protoreflect.FullName("trellis.numbers"), reg.File().Package())
	assert.Equal(t, protoreflect.Name("RootSchemaQueryDataset"), reg.Dataset().Name())

	for _, typeName := range []string{"Named", "Number", "Neither", "Prime", "Composite"} {
		md := reg.Message(typeName)
		require.NotNil(t, md, typeName)
		assert.Equal(t, protoreflect.Name(typeName+"Vertex"), md.Name())
		got, ok := reg.TypeOf(md)
		require.True(t, ok)
		assert.Equal(t, typeName, got)
	}
	assert.Nil(t, reg.Message("Int"))
}

func TestGetFieldDescriptor(t *testing.T) {
	reg := buildTestRegistry(t)

	tests := []struct {
		name       string
		objectType string
		field      string
		protoName  string
		kind       protoreflect.Kind
		repeated   bool
		presence   bool
		message    protoreflect.Name
	}{
		{name: "non-null property", objectType: "Prime", field: "value", protoName: "value", kind: protoreflect.Int64Kind},
		{name: "nullable property", objectType: "Prime", field: "name", protoName: "name", kind: protoreflect.StringKind, presence: true},
		{name: "list property", objectType: "Composite", field: "vowelsInName", protoName: "vowels_in_name", kind: protoreflect.StringKind, repeated: true},
		{name: "edge to an interface", objectType: "Neither", field: "predecessor", protoName: "predecessor", kind: protoreflect.MessageKind, presence: true, message: "NumberVertex"},
		{name: "list edge", objectType: "Composite", field: "primeFactor", protoName: "prime_factor", kind: protoreflect.MessageKind, repeated: true, message: "PrimeVertex"},
		{name: "starting edge", objectType: "RootSchemaQuery", field: "Four", protoName: "four", kind: protoreflect.MessageKind, repeated: true, message: "NumberVertex"},
		{name: "interface choice", objectType: "Number", field: "Prime", protoName: "prime", kind: protoreflect.MessageKind, presence: true, message: "PrimeVertex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := reg.Field(tt.objectType, tt.field)
			require.NotNil(t, fd, "field descriptor should exist for %s.%s", tt.objectType, tt.field)
			assert.Equal(t, tt.protoName, string(fd.Name()))
			assert.Equal(t, tt.kind, fd.Kind())
			assert.Equal(t, tt.repeated, fd.IsList())
			assert.Equal(t, tt.presence, fd.HasPresence())
			if tt.message != "" {
				assert.Equal(t, tt.message, fd.Message().Name())
			}
		})
	}

	assert.Nil(t, reg.Field("Prime", "nonExistent"))
	assert.Nil(t, reg.Field("NonExistent", "value"))
	assert.Nil(t, reg.Field("Number", "value"))
}

func TestInterfaceOneof(t *testing.T) {
	reg := buildTestRegistry(t)
	oneofs := reg.Message("Number").Oneofs()
	require.Equal(t, 1, oneofs.Len())
	choices := oneofs.Get(0).Fields()
	var names []string
	for i := 0; i < choices.Len(); i++ {
		names = append(names, string(choices.Get(i).Name()))
	}
	assert.ElementsMatch(t, []string{"neither", "prime", "composite"}, names)
}

func TestFieldNumbersAreStable(t *testing.T) {
	a := buildTestRegistry(t)
	b := buildTestRegistry(t)
	fields := a.Message("Composite").Fields()
	for i := 0; i < fields.Len(); i++ {
		f := fields.Get(i)
		assert.Equal(t, f.Number(), b.Message("Composite").Fields().ByName(f.Name()).Number())
		assert.True(t, f.Number() >= 1 && f.Number() <= 31767)
		assert.False(t, f.Number() >= 19000 && f.Number() <= 19999)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protoreg.Print(buildTestRegistry(t), &buf))
	out := buf.String()
	assert.Contains(t, out, `syntax = "proto3";`)
	assert.Contains(t, out, "package trellis.numbers;")
	assert.Contains(t, out, "message PrimeVertex {")
	assert.Contains(t, out, "optional string name =")
	assert.Contains(t, out, "repeated PrimeVertex prime_factor =")
	assert.Contains(t, out, "oneof value {")
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	fp, err := protoreg.Render(buildTestRegistry(t), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trellis", "numbers", "numbers.proto"), fp)
	data, err := os.ReadFile(fp)
	require.NoError(t, err)
	assert.Contains(t, string(data), "message RootSchemaQueryDataset {")
}
