package executor

import (
	"context"
	"iter"

	planner "github.com/hanpama/trellis/internal/planner"
	value "github.com/hanpama/trellis/internal/value"
)

// Vertex is an adapter-defined vertex value. The executor never inspects it;
// nil stands for a null vertex.
type Vertex = any

// Parameters are the bound edge parameters handed to an adapter, defaults
// included.
type Parameters = planner.Parameters

type (
	VertexIterator   = iter.Seq[Vertex]
	ContextIterator  = iter.Seq[*DataContext]
	PropertyIterator = iter.Seq2[*DataContext, value.Value]
	NeighborIterator = iter.Seq2[*DataContext, VertexIterator]
	CoercionIterator = iter.Seq2[*DataContext, bool]
)

// Adapter is the data-source integration surface used by Run.
//
// General contract
//   - Every method returns a lazy iterator. The executor pulls from it only as
//     fast as the consumer of the result stream pulls rows, and stops pulling
//     as soon as the consumer stops. An adapter must never yield again after
//     its yield function returned false.
//   - ResolveProperty, ResolveNeighbors and ResolveCoercion receive a stream of
//     contexts and must yield exactly one pair per input context, in input
//     order, each pair carrying the very *DataContext it answers. The input
//     stream must be drained before the output stream ends. Adapters may read
//     ahead and buffer contexts to batch backend requests.
//   - A context whose ActiveVertex is nil sits inside an @optional edge that
//     had no neighbor. It must be answered with a null property value, an
//     empty neighbor stream, or false for a coercion.
//   - Vertex streams never contain nil.
//   - Property values must conform to the declared property type. Int values
//     are never widened for Float properties by the executor.
//
// Type and field names
//   - typeName is the type the query resolves the property or edge against;
//     a vertex handed to the adapter under typeName may be of any subtype.
//   - For ResolveCoercion, the adapter answers whether the vertex is of type
//     coerceTo or one of its subtypes.
//
// Failures
//   - Adapters abort a query by calling ReportError with the ctx they were
//     given and then ending their iterator. The executor reports the error as
//     an *AdapterError.
//
// Any violation of this contract ends the result stream with an
// *AdapterError wrapping one of the Err* sentinels.
type Adapter interface {
	// ResolveStartingVertices produces the vertices of a root query edge.
	ResolveStartingVertices(ctx context.Context, edge string, params Parameters) VertexIterator

	// ResolveProperty produces the value of one property for every context.
	ResolveProperty(ctx context.Context, contexts ContextIterator, typeName, property string) PropertyIterator

	// ResolveNeighbors produces the neighbors along one edge for every
	// context. The neighbor stream of a pair is consumed before the adapter
	// is asked for the next pair.
	ResolveNeighbors(ctx context.Context, contexts ContextIterator, typeName, edge string, params Parameters) NeighborIterator

	// ResolveCoercion reports for every context whether its vertex is of
	// type coerceTo.
	ResolveCoercion(ctx context.Context, contexts ContextIterator, typeName, coerceTo string) CoercionIterator
}

// Adapter method names as reported in *AdapterError and events.
const (
	MethodResolveStartingVertices = "ResolveStartingVertices"
	MethodResolveProperty         = "ResolveProperty"
	MethodResolveNeighbors        = "ResolveNeighbors"
	MethodResolveCoercion         = "ResolveCoercion"
)

type callKey struct{}

// ReportError aborts the query an adapter call belongs to. ctx must be the
// context the executor passed to the adapter method; calls with any other
// context are ignored and report false.
func ReportError(ctx context.Context, err error) bool {
	c, ok := ctx.Value(callKey{}).(*call)
	if !ok || err == nil {
		return false
	}
	c.r.fail(&AdapterError{Method: c.method, TypeName: c.typeName, Field: c.field, Err: err})
	return true
}
