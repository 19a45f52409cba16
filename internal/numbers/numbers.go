// Package numbers is an adapter over the integers. Every integer is a vertex
// typed Prime, Composite or Neither; edges follow arithmetic.
package numbers

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	executor "github.com/hanpama/trellis/internal/executor"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
)

//go:embed numbers.graphql
var schemaText string

// SchemaText returns the SDL of the numbers schema.
func SchemaText() string { return schemaText }

var loadSchema = sync.OnceValues(func() (*schema.Schema, error) {
	return schema.Build("numbers.graphql", schemaText)
})

// Schema returns the parsed numbers schema.
func Schema() (*schema.Schema, error) { return loadSchema() }

// Number is the vertex type of the adapter.
type Number int64

var names = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen", "twenty",
}

// Name returns the English name of n for 0 through 20.
func (n Number) Name() (string, bool) {
	if n < 0 || int(n) >= len(names) {
		return "", false
	}
	return names[n], true
}

// TypeName returns the concrete schema type of n. Integers below 2 are
// neither prime nor composite.
func (n Number) TypeName() string {
	switch {
	case n < 2:
		return "Neither"
	case len(n.PrimeFactors()) == 1 && n.PrimeFactors()[0] == n:
		return "Prime"
	}
	return "Composite"
}

// PrimeFactors returns the distinct prime factors of n in ascending order.
func (n Number) PrimeFactors() []Number {
	var out []Number
	rest := n
	for p := Number(2); p*p <= rest; p++ {
		if rest%p != 0 {
			continue
		}
		out = append(out, p)
		for rest%p == 0 {
			rest /= p
		}
	}
	if rest > 1 {
		out = append(out, rest)
	}
	return out
}

// Divisors returns every d in 1..n-1 dividing n.
func (n Number) Divisors() []Number {
	var out []Number
	for d := Number(1); d < n; d++ {
		if n%d == 0 {
			out = append(out, d)
		}
	}
	return out
}

func (n Number) vowels() value.Value {
	name, ok := n.Name()
	if !ok {
		return value.Null()
	}
	vowels := []value.Value{}
	for _, r := range name {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels = append(vowels, value.String(string(r)))
		}
	}
	return value.List(vowels...)
}

// Adapter resolves the numbers schema.
type Adapter struct {
	schema *schema.Schema
}

var _ executor.Adapter = (*Adapter)(nil)

func New() (*Adapter, error) {
	s, err := Schema()
	if err != nil {
		return nil, err
	}
	return &Adapter{schema: s}, nil
}

func intParam(params executor.Parameters, name string, fallback int64) int64 {
	if i, ok := params.Get(name).AsInt(); ok {
		return i
	}
	return fallback
}

func rangeOf(from, to, step Number) executor.VertexIterator {
	return func(yield func(executor.Vertex) bool) {
		for n := from; n < to; n += step {
			if !yield(n) {
				return
			}
		}
	}
}

func (a *Adapter) ResolveStartingVertices(ctx context.Context, edge string, params executor.Parameters) executor.VertexIterator {
	switch edge {
	case "Zero":
		return executor.Vertices(Number(0))
	case "One":
		return executor.Vertices(Number(1))
	case "Two":
		return executor.Vertices(Number(2))
	case "Four":
		return executor.Vertices(Number(4))
	case "Number":
		return rangeOf(Number(intParam(params, "min", 0)), Number(intParam(params, "max", 0)), 1)
	}
	executor.ReportError(ctx, fmt.Errorf("numbers: unknown starting edge %q", edge))
	return executor.Vertices[executor.Vertex]()
}

func (a *Adapter) ResolveProperty(ctx context.Context, contexts executor.ContextIterator, typeName, property string) executor.PropertyIterator {
	var f func(Number) value.Value
	switch property {
	case "value":
		f = func(n Number) value.Value { return value.Int(int64(n)) }
	case "name":
		f = func(n Number) value.Value {
			if name, ok := n.Name(); ok {
				return value.String(name)
			}
			return value.Null()
		}
	case "vowelsInName":
		f = Number.vowels
	case schema.TypenameField:
		f = func(n Number) value.Value { return value.String(n.TypeName()) }
	default:
		executor.ReportError(ctx, fmt.Errorf("numbers: unknown property %s.%s", typeName, property))
		return func(func(*executor.DataContext, value.Value) bool) {}
	}
	return executor.ResolvePropertyWith(contexts, func(v executor.Vertex) value.Value {
		return f(v.(Number))
	})
}

func (a *Adapter) ResolveNeighbors(ctx context.Context, contexts executor.ContextIterator, typeName, edge string, params executor.Parameters) executor.NeighborIterator {
	var f func(Number) executor.VertexIterator
	switch edge {
	case "predecessor":
		f = func(n Number) executor.VertexIterator {
			if n > 0 {
				return executor.Vertices(n - 1)
			}
			return executor.Vertices[Number]()
		}
	case "successor":
		f = func(n Number) executor.VertexIterator { return executor.Vertices(n + 1) }
	case "multiple":
		limit := Number(intParam(params, "max", 0))
		f = func(n Number) executor.VertexIterator {
			if n <= 0 {
				return executor.Vertices[Number]()
			}
			return rangeOf(2*n, (limit+1)*n, n)
		}
	case "primeFactor":
		f = func(n Number) executor.VertexIterator { return executor.Vertices(n.PrimeFactors()...) }
	case "divisor":
		f = func(n Number) executor.VertexIterator { return executor.Vertices(n.Divisors()...) }
	default:
		executor.ReportError(ctx, fmt.Errorf("numbers: unknown edge %s.%s", typeName, edge))
		return func(func(*executor.DataContext, executor.VertexIterator) bool) {}
	}
	return executor.ResolveNeighborsWith(contexts, func(v executor.Vertex) executor.VertexIterator {
		return f(v.(Number))
	})
}

func (a *Adapter) ResolveCoercion(ctx context.Context, contexts executor.ContextIterator, typeName, coerceTo string) executor.CoercionIterator {
	return executor.ResolveCoercionWith(contexts, func(v executor.Vertex) bool {
		return a.schema.IsSubtype(v.(Number).TypeName(), coerceTo)
	})
}
