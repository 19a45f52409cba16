package protoreg

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldNumbers(t *testing.T) {
	require.Nil(t, fieldNumbers(nil))

	names := []string{"value", "name", "predecessor", "successor"}
	got := fieldNumbers(names)
	require.Len(t, got, len(names))
	seen := map[int]bool{}
	for i, n := range got {
		require.False(t, seen[n], "duplicate number for %s", names[i])
		seen[n] = true
		require.Positive(t, n)
	}

	// Reordering the input must not change the assignment.
	rev := fieldNumbers([]string{"successor", "predecessor", "name", "value"})
	require.Equal(t, []int{got[3], got[2], got[1], got[0]}, rev)
}

func TestSnakeCase(t *testing.T) {
	require.Equal(t, "vowels_in_name", snakeCase("vowelsInName"))
	require.Equal(t, "prime", snakeCase("Prime"))
	require.Equal(t, "four", snakeCase("Four"))
}

func TestFieldNumbersAvoidReservedRange(t *testing.T) {
	names := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		names = append(names, "f"+strconv.Itoa(i))
	}
	seen := map[int]bool{}
	for _, n := range fieldNumbers(names) {
		require.False(t, n >= reservedLow && n <= reservedHigh, "number %d is reserved", n)
		require.LessOrEqual(t, n, maxFieldNumber)
		require.False(t, seen[n])
		seen[n] = true
	}
}
