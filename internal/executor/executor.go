package executor

import (
	"context"
	"errors"
	"iter"
	"time"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
	frontend "github.com/hanpama/trellis/internal/frontend"
	ir "github.com/hanpama/trellis/internal/ir"
	planner "github.com/hanpama/trellis/internal/planner"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
)

// Executor runs query text against one adapter and schema. It holds no
// per-query state and may be shared between goroutines as long as the
// adapter can.
type Executor struct {
	adapter Adapter
	schema  *schema.Schema
}

func NewExecutor(adapter Adapter, schema *schema.Schema) *Executor {
	return &Executor{adapter: adapter, schema: schema}
}

func (e *Executor) Schema() *schema.Schema { return e.schema }

// Execute parses, validates and plans query with args, then returns the lazy
// result stream. Parse, validation and argument errors are returned here,
// before any adapter call; adapter failures and cancellation end the stream.
func (e *Executor) Execute(ctx context.Context, query string, args map[string]any) (iter.Seq2[value.Row, error], error) {
	plan, err := e.Prepare(query, args)
	if err != nil {
		eventbus.Publish(ctx, events.QueryStart{Query: query, Arguments: args})
		eventbus.Publish(ctx, events.QueryFinish{Query: query, Kind: ErrorKind(err), Err: err})
		return nil, err
	}

	return func(yield func(value.Row, error) bool) {
		eventbus.Publish(ctx, events.QueryStart{Query: query, StartEdge: plan.Start.Edge, Arguments: args})
		started := time.Now()
		rows := 0
		var runErr error
		defer func() {
			eventbus.Publish(ctx, events.QueryFinish{
				Query:    query,
				Kind:     ErrorKind(runErr),
				Err:      runErr,
				Rows:     rows,
				Duration: time.Since(started),
			})
		}()

		var adapter Adapter = e.adapter
		if eventbus.Listening[events.AdapterCall]() {
			adapter = &publishingAdapter{Adapter: adapter}
		}
		for row, err := range Run(ctx, adapter, plan) {
			if err != nil {
				runErr = err
			} else {
				rows++
			}
			if !yield(row, err) {
				return
			}
		}
	}, nil
}

// Prepare parses query and binds args without touching the adapter.
func (e *Executor) Prepare(query string, args map[string]any) (*planner.Plan, error) {
	q, err := frontend.Parse(e.schema, query)
	if err != nil {
		return nil, err
	}
	return planner.Compile(q, e.schema, args)
}

// Collect drains a result stream, returning the rows produced before the
// first error together with that error.
func Collect(rows iter.Seq2[value.Row, error]) ([]value.Row, error) {
	var out []value.Row
	for row, err := range rows {
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}

// ErrorKind classifies err for reporting: one of the ir error kinds,
// "AdapterError", "Canceled", "Internal", or "" for nil.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if k := ir.Kind(err); k != "" {
		return k
	}
	var adapterErr *AdapterError
	switch {
	case errors.As(err, &adapterErr):
		return "AdapterError"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	}
	return "Internal"
}

// publishingAdapter emits one events.AdapterCall per adapter invocation.
type publishingAdapter struct {
	Adapter
}

func (a *publishingAdapter) ResolveStartingVertices(ctx context.Context, edge string, params Parameters) VertexIterator {
	eventbus.Publish(ctx, events.AdapterCall{Method: MethodResolveStartingVertices, Field: edge})
	return a.Adapter.ResolveStartingVertices(ctx, edge, params)
}

func (a *publishingAdapter) ResolveProperty(ctx context.Context, contexts ContextIterator, typeName, property string) PropertyIterator {
	eventbus.Publish(ctx, events.AdapterCall{Method: MethodResolveProperty, TypeName: typeName, Field: property})
	return a.Adapter.ResolveProperty(ctx, contexts, typeName, property)
}

func (a *publishingAdapter) ResolveNeighbors(ctx context.Context, contexts ContextIterator, typeName, edge string, params Parameters) NeighborIterator {
	eventbus.Publish(ctx, events.AdapterCall{Method: MethodResolveNeighbors, TypeName: typeName, Field: edge})
	return a.Adapter.ResolveNeighbors(ctx, contexts, typeName, edge, params)
}

func (a *publishingAdapter) ResolveCoercion(ctx context.Context, contexts ContextIterator, typeName, coerceTo string) CoercionIterator {
	eventbus.Publish(ctx, events.AdapterCall{Method: MethodResolveCoercion, TypeName: typeName, Field: coerceTo})
	return a.Adapter.ResolveCoercion(ctx, contexts, typeName, coerceTo)
}
