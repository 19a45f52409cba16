package executor

import (
	"slices"

	value "github.com/hanpama/trellis/internal/value"
)

// ResolvePropertyWith answers every context with f applied to its vertex.
// Null vertices get null without calling f.
func ResolvePropertyWith(contexts ContextIterator, f func(Vertex) value.Value) PropertyIterator {
	return func(yield func(*DataContext, value.Value) bool) {
		for dc := range contexts {
			v := value.Null()
			if dc.ActiveVertex() != nil {
				v = f(dc.ActiveVertex())
			}
			if !yield(dc, v) {
				return
			}
		}
	}
}

// ResolveNeighborsWith answers every context with the neighbors f produces
// for its vertex. Null vertices get an empty stream without calling f.
func ResolveNeighborsWith(contexts ContextIterator, f func(Vertex) VertexIterator) NeighborIterator {
	return func(yield func(*DataContext, VertexIterator) bool) {
		for dc := range contexts {
			it := Vertices[Vertex]()
			if dc.ActiveVertex() != nil {
				it = f(dc.ActiveVertex())
			}
			if !yield(dc, it) {
				return
			}
		}
	}
}

// ResolveCoercionWith answers every context with f applied to its vertex.
// Null vertices get false without calling f.
func ResolveCoercionWith(contexts ContextIterator, f func(Vertex) bool) CoercionIterator {
	return func(yield func(*DataContext, bool) bool) {
		for dc := range contexts {
			ok := dc.ActiveVertex() != nil && f(dc.ActiveVertex())
			if !yield(dc, ok) {
				return
			}
		}
	}
}

// Vertices returns a stream over a fixed set of vertices.
func Vertices[V any](vs ...V) VertexIterator {
	return func(yield func(Vertex) bool) {
		for _, v := range slices.Clone(vs) {
			if !yield(v) {
				return
			}
		}
	}
}
