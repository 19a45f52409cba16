package executor

import (
	"context"
	"strings"
	"sync"

	value "github.com/hanpama/trellis/internal/value"
)

// MockStarting produces the vertices of a starting edge.
type MockStarting func(params Parameters) []Vertex

// MockProperty resolves one property of a non-null vertex.
type MockProperty func(v Vertex) value.Value

// MockNeighbors resolves one edge of a non-null vertex.
type MockNeighbors func(v Vertex, params Parameters) []Vertex

// MockCoercion reports whether a non-null vertex is of the target type.
type MockCoercion func(v Vertex) bool

// Call records one adapter invocation. Contexts counts the input contexts
// the adapter answered, which is known only once its iterator was consumed.
type Call struct {
	Method     string
	TypeName   string
	Field      string
	Parameters Parameters
	Contexts   int
}

// MockAdapter implements Adapter over registered functions and records every
// call in order. Keys are "Edge" for starting edges and "Type.field" for
// properties, neighbors and coercions (field being the coercion target).
// Unregistered properties resolve to null, unregistered edges to no
// neighbors, unregistered coercions to false.
type MockAdapter struct {
	mu        sync.Mutex
	starting  map[string]MockStarting
	props     map[string]MockProperty
	neighbors map[string]MockNeighbors
	coercions map[string]MockCoercion
	calls     []Call
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		starting:  make(map[string]MockStarting),
		props:     make(map[string]MockProperty),
		neighbors: make(map[string]MockNeighbors),
		coercions: make(map[string]MockCoercion),
	}
}

func (m *MockAdapter) SetStarting(edge string, f MockStarting) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starting[edge] = f
	return m
}

func (m *MockAdapter) SetProperty(typeName, property string, f MockProperty) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[typeName+"."+property] = f
	return m
}

func (m *MockAdapter) SetNeighbors(typeName, edge string, f MockNeighbors) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighbors[typeName+"."+edge] = f
	return m
}

func (m *MockAdapter) SetCoercion(typeName, coerceTo string, f MockCoercion) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coercions[typeName+"."+coerceTo] = f
	return m
}

func (m *MockAdapter) record(c Call) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return len(m.calls) - 1
}

func (m *MockAdapter) answered(i int) {
	m.mu.Lock()
	m.calls[i].Contexts++
	m.mu.Unlock()
}

// counting wraps contexts so that every context pulled is counted against
// call i.
func (m *MockAdapter) counting(i int, contexts ContextIterator) ContextIterator {
	return func(yield func(*DataContext) bool) {
		for dc := range contexts {
			m.answered(i)
			if !yield(dc) {
				return
			}
		}
	}
}

func (m *MockAdapter) ResolveStartingVertices(ctx context.Context, edge string, params Parameters) VertexIterator {
	m.record(Call{Method: MethodResolveStartingVertices, Field: edge, Parameters: params})
	m.mu.Lock()
	f := m.starting[edge]
	m.mu.Unlock()
	if f == nil {
		return Vertices[Vertex]()
	}
	return func(yield func(Vertex) bool) {
		for _, v := range f(params) {
			if !yield(v) {
				return
			}
		}
	}
}

func (m *MockAdapter) ResolveProperty(ctx context.Context, contexts ContextIterator, typeName, property string) PropertyIterator {
	i := m.record(Call{Method: MethodResolveProperty, TypeName: typeName, Field: property})
	m.mu.Lock()
	f := m.props[typeName+"."+property]
	m.mu.Unlock()
	return ResolvePropertyWith(m.counting(i, contexts), func(v Vertex) value.Value {
		if f == nil {
			return value.Null()
		}
		return f(v)
	})
}

func (m *MockAdapter) ResolveNeighbors(ctx context.Context, contexts ContextIterator, typeName, edge string, params Parameters) NeighborIterator {
	i := m.record(Call{Method: MethodResolveNeighbors, TypeName: typeName, Field: edge, Parameters: params})
	m.mu.Lock()
	f := m.neighbors[typeName+"."+edge]
	m.mu.Unlock()
	return ResolveNeighborsWith(m.counting(i, contexts), func(v Vertex) VertexIterator {
		if f == nil {
			return Vertices[Vertex]()
		}
		return Vertices(f(v, params)...)
	})
}

func (m *MockAdapter) ResolveCoercion(ctx context.Context, contexts ContextIterator, typeName, coerceTo string) CoercionIterator {
	i := m.record(Call{Method: MethodResolveCoercion, TypeName: typeName, Field: coerceTo})
	m.mu.Lock()
	f := m.coercions[typeName+"."+coerceTo]
	m.mu.Unlock()
	return ResolveCoercionWith(m.counting(i, contexts), func(v Vertex) bool {
		return f != nil && f(v)
	})
}

// GetCalls returns a copy of the recorded calls in order.
func (m *MockAdapter) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls (resolvers remain).
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Methods lists the recorded calls as "Method Type.field" strings.
func (m *MockAdapter) Methods() []string {
	calls := m.GetCalls()
	out := make([]string, len(calls))
	for i, c := range calls {
		var sb strings.Builder
		sb.WriteString(c.Method)
		sb.WriteByte(' ')
		if c.TypeName != "" {
			sb.WriteString(c.TypeName)
			sb.WriteByte('.')
		}
		sb.WriteString(c.Field)
		out[i] = sb.String()
	}
	return out
}
