package numbers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeNames(t *testing.T) {
	got := map[Number]string{}
	for n := Number(0); n <= 9; n++ {
		got[n] = n.TypeName()
	}
	require.Equal(t, map[Number]string{
		0: "Neither", 1: "Neither",
		2: "Prime", 3: "Prime", 5: "Prime", 7: "Prime",
		4: "Composite", 6: "Composite", 8: "Composite", 9: "Composite",
	}, got)
}

func TestArithmetic(t *testing.T) {
	require.Equal(t, []Number{2, 3}, Number(12).PrimeFactors())
	require.Equal(t, []Number{3}, Number(9).PrimeFactors())
	require.Equal(t, []Number{1, 2, 3, 4, 6}, Number(12).Divisors())

	name, ok := Number(20).Name()
	require.True(t, ok)
	require.Equal(t, "twenty", name)
	_, ok = Number(21).Name()
	require.False(t, ok)

	require.Equal(t, `["e", "e"]`, Number(3).vowels().String())
	require.True(t, Number(42).vowels().IsNull())
}

func TestSchema(t *testing.T) {
	s, err := Schema()
	require.NoError(t, err)
	require.Equal(t, "RootSchemaQuery", s.QueryType().Name)
	require.True(t, s.IsSubtype("Prime", "Named"))
	require.Equal(t, SchemaText(), schemaText)
}
