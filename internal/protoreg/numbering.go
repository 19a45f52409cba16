package protoreg

import (
	"hash/fnv"
	"sort"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	maxFieldNumber = 31767
	reservedLow    = 19000
	reservedHigh   = 19999
)

// numberFields gives every field a number derived from its name, so adding
// a property to a vertex type never renumbers its siblings.
func numberFields(fields []*protobuilder.FieldBuilder) {
	names := make([]string, len(fields))
	for i, fb := range fields {
		names[i] = string(fb.Name())
	}
	for i, n := range fieldNumbers(names) {
		fields[i].SetNumber(protoreflect.FieldNumber(n))
	}
}

// fieldNumbers maps each name to FNV-32a(name) mod 31767 + 1, probing
// linearly past collisions and the 19000-19999 range protobuf reserves.
// Names are placed in sorted order so the result does not depend on the
// order of the input.
func fieldNumbers(names []string) []int {
	if len(names) == 0 {
		return nil
	}
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	out := make([]int, len(names))
	used := make(map[int]bool, len(names))
	for _, idx := range order {
		n := int(hashName(names[idx])%maxFieldNumber) + 1
		for tries := 0; ; tries++ {
			if tries > maxFieldNumber {
				panic("protoreg: field number space exhausted")
			}
			if n >= reservedLow && n <= reservedHigh {
				n = reservedHigh + 1
			}
			if !used[n] {
				break
			}
			n++
			if n > maxFieldNumber {
				n = 1
			}
		}
		used[n] = true
		out[idx] = n
	}
	return out
}

func hashName(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
