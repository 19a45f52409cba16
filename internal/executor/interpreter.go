package executor

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"slices"

	ir "github.com/hanpama/trellis/internal/ir"
	planner "github.com/hanpama/trellis/internal/planner"
	value "github.com/hanpama/trellis/internal/value"
)

// run is the state of one execution of a plan.
type run struct {
	ctx     context.Context
	adapter Adapter
	plan    *planner.Plan
	err     error

	regexes map[string]*regexp.Regexp
}

// Run executes plan against adapter and returns the lazy result stream.
// Nothing happens until the stream is ranged over. Rows are produced in the
// order the adapter produces vertices; the stream ends early with a non-nil
// error when the adapter breaks its contract, reports an error, or ctx is
// canceled. Breaking out of the loop stops every pending adapter iterator.
func Run(ctx context.Context, adapter Adapter, plan *planner.Plan) iter.Seq2[value.Row, error] {
	return func(yield func(value.Row, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		r := &run{ctx: ctx, adapter: adapter, plan: plan}
		for dc := range r.vertex(r.start(plan.Start), plan.Start.Root) {
			if err := ctx.Err(); err != nil {
				r.fail(err)
				break
			}
			if !yield(r.project(dc), nil) {
				return
			}
		}
		if r.err != nil {
			yield(nil, r.err)
		}
	}
}

func (r *run) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// live reports whether the execution may continue.
func (r *run) live() bool {
	if r.err != nil {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.fail(err)
		return false
	}
	return true
}

func (r *run) project(dc *DataContext) value.Row {
	row := make(value.Row, len(r.plan.Outputs))
	for _, name := range r.plan.Outputs {
		row[name] = dc.outputs[name]
	}
	return row
}

// vertex chains the steps run on every context entering v.
func (r *run) vertex(in ContextIterator, v *planner.Vertex) ContextIterator {
	out := in
	for _, step := range v.Steps {
		switch n := step.(type) {
		case *planner.Coercion:
			out = r.coercion(out, n)
		case *planner.Property:
			out = r.property(out, n)
		case *planner.Filter:
			out = r.filter(out, n)
		case *planner.Neighbor:
			out = r.restore(r.vertex(r.neighbor(out, n), n.Target))
		case *planner.Fold:
			out = r.fold(out, n)
		case *planner.Recurse:
			out = r.restore(r.vertex(r.recurse(out, n), n.Target))
		}
	}
	return out
}

func (r *run) start(n *planner.StartEdge) ContextIterator {
	return func(yield func(*DataContext) bool) {
		c := &call{r: r, method: MethodResolveStartingVertices, field: n.Edge, drained: true}
		it := r.adapter.ResolveStartingVertices(c.context(), n.Edge, n.Parameters)
		if it == nil {
			c.violation(ErrNilIterator, "")
			return
		}
		for v := range c.vertices(nil, it) {
			if !yield(newDataContext(v)) {
				return
			}
		}
	}
}

func (r *run) property(in ContextIterator, n *planner.Property) ContextIterator {
	return func(yield func(*DataContext) bool) {
		c := r.newCall(MethodResolveProperty, n.TypeName, n.Name, in)
		defer c.finish()
		it := r.adapter.ResolveProperty(c.context(), c.contexts, n.TypeName, n.Name)
		if it == nil {
			c.violation(ErrNilIterator, "")
			return
		}
		it(func(dc *DataContext, v value.Value) bool {
			if !c.accept(dc) {
				return false
			}
			switch {
			case dc.active == nil && !v.IsNull():
				c.violation(ErrResultForNullVertex, fmt.Sprintf("value %s", v))
				return false
			case dc.active == nil:
				// null vertices read null regardless of the declared type
			case !ir.Conforms(v, n.Type):
				c.violation(ErrInvalidValue, fmt.Sprintf("value %s is not a valid %s", v, n.Type))
				return false
			}
			dc.record(n.Name, v, n.Tags, n.Outputs)
			return c.emit(yield, dc)
		})
	}
}

func (r *run) filter(in ContextIterator, n *planner.Filter) ContextIterator {
	return func(yield func(*DataContext) bool) {
		for dc := range in {
			if r.passes(dc, n) && !yield(dc) {
				return
			}
		}
	}
}

func (r *run) coercion(in ContextIterator, n *planner.Coercion) ContextIterator {
	return func(yield func(*DataContext) bool) {
		c := r.newCall(MethodResolveCoercion, n.From, n.To, in)
		defer c.finish()
		it := r.adapter.ResolveCoercion(c.context(), c.contexts, n.From, n.To)
		if it == nil {
			c.violation(ErrNilIterator, "")
			return
		}
		it(func(dc *DataContext, ok bool) bool {
			if !c.accept(dc) {
				return false
			}
			if dc.active == nil {
				if ok {
					c.violation(ErrResultForNullVertex, "coercion succeeded")
					return false
				}
				return c.emit(yield, dc)
			}
			if !ok {
				return true
			}
			return c.emit(yield, dc)
		})
	}
}

// expand calls ResolveNeighbors over in and hands every context, together
// with its checked neighbor stream, to fn.
func (r *run) expand(in ContextIterator, typeName, edge string, params Parameters, fn func(dc *DataContext, neighbors iter.Seq[Vertex]) bool) {
	c := r.newCall(MethodResolveNeighbors, typeName, edge, in)
	defer c.finish()
	it := r.adapter.ResolveNeighbors(c.context(), c.contexts, typeName, edge, params)
	if it == nil {
		c.violation(ErrNilIterator, "")
		return
	}
	it(func(dc *DataContext, neighbors VertexIterator) bool {
		if !c.accept(dc) {
			return false
		}
		if neighbors == nil {
			c.violation(ErrNilIterator, "neighbor stream")
			return false
		}
		if !fn(dc, c.vertices(dc, neighbors)) || !r.live() {
			c.stopped = true
			return false
		}
		return true
	})
}

func (r *run) neighbor(in ContextIterator, n *planner.Neighbor) ContextIterator {
	return func(yield func(*DataContext) bool) {
		r.expand(in, n.TypeName, n.Edge, n.Parameters, func(dc *DataContext, neighbors iter.Seq[Vertex]) bool {
			found := false
			for v := range neighbors {
				found = true
				if !yield(dc.enter(v)) {
					return false
				}
			}
			if !r.live() {
				return false
			}
			if !found && (dc.active == nil || n.Optional) {
				return yield(dc.enter(nil))
			}
			return true
		})
	}
}

func (r *run) restore(in ContextIterator) ContextIterator {
	return func(yield func(*DataContext) bool) {
		for dc := range in {
			dc.leave()
			if !yield(dc) {
				return
			}
		}
	}
}

func (r *run) fold(in ContextIterator, n *planner.Fold) ContextIterator {
	return func(yield func(*DataContext) bool) {
		r.expand(in, n.TypeName, n.Edge, n.Parameters, func(dc *DataContext, neighbors iter.Seq[Vertex]) bool {
			children := func(yield func(*DataContext) bool) {
				for v := range neighbors {
					if !yield(dc.enter(v)) {
						return
					}
				}
			}
			lists := make([][]value.Value, len(n.Outputs))
			for child := range r.vertex(children, n.Target) {
				for i, name := range n.Outputs {
					lists[i] = append(lists[i], child.outputs[name])
				}
			}
			if !r.live() {
				return false
			}
			for i, name := range n.Outputs {
				l, err := value.NewList(lists[i])
				if err != nil {
					r.fail(&AdapterError{Method: MethodResolveProperty, Field: name, Err: ErrInvalidValue, Detail: err.Error()})
					return false
				}
				dc.outputs[name] = l
			}
			return yield(dc)
		})
	}
}

// recurse emits, depth first in pre-order, every vertex reachable from each
// context in 0..Depth steps, one context per path.
func (r *run) recurse(in ContextIterator, n *planner.Recurse) ContextIterator {
	return func(yield func(*DataContext) bool) {
		for dc := range in {
			if !r.descend(dc, dc.active, 0, n, yield) {
				return
			}
		}
	}
}

func (r *run) descend(origin *DataContext, v Vertex, depth int, n *planner.Recurse, yield func(*DataContext) bool) bool {
	if !yield(origin.enter(v)) {
		return false
	}
	if v == nil || depth == n.Depth {
		return true
	}
	at := origin.enter(v)
	if depth > 0 && n.CoerceTo != "" {
		ok := false
		c := r.newCall(MethodResolveCoercion, n.TargetType, n.CoerceTo, single(at))
		it := r.adapter.ResolveCoercion(c.context(), c.contexts, n.TargetType, n.CoerceTo)
		if it == nil {
			c.violation(ErrNilIterator, "")
		} else {
			it(func(dc *DataContext, b bool) bool {
				if !c.accept(dc) {
					return false
				}
				ok = b
				return true
			})
		}
		c.finish()
		if !r.live() {
			return false
		}
		if !ok {
			return true
		}
	}
	cont := true
	r.expand(single(at), n.StepType, n.Edge, n.Parameters, func(_ *DataContext, neighbors iter.Seq[Vertex]) bool {
		for next := range neighbors {
			if !r.descend(origin, next, depth+1, n, yield) {
				cont = false
				return false
			}
		}
		return true
	})
	return cont && r.live()
}

func single(dc *DataContext) ContextIterator {
	return func(yield func(*DataContext) bool) { yield(dc) }
}

// call tracks one adapter invocation and checks its answers against the
// contexts it was handed.
type call struct {
	r        *run
	method   string
	typeName string
	field    string

	next    func() (*DataContext, bool)
	stop    func()
	pending []*DataContext
	drained bool

	// stopped is set once the executor returned false to the adapter.
	stopped bool
}

func (r *run) newCall(method, typeName, field string, in ContextIterator) *call {
	next, stop := iter.Pull(in)
	return &call{r: r, method: method, typeName: typeName, field: field, next: next, stop: stop}
}

func (c *call) context() context.Context {
	return context.WithValue(c.r.ctx, callKey{}, c)
}

func (c *call) violation(err error, detail string) {
	c.stopped = true
	c.r.fail(&AdapterError{Method: c.method, TypeName: c.typeName, Field: c.field, Err: err, Detail: detail})
}

// contexts is the input stream handed to the adapter.
func (c *call) contexts(yield func(*DataContext) bool) {
	for c.r.live() {
		dc, ok := c.next()
		if !ok {
			c.drained = true
			return
		}
		c.pending = append(c.pending, dc)
		if !yield(dc) {
			return
		}
	}
}

// accept checks that dc is the oldest unanswered input context.
func (c *call) accept(dc *DataContext) bool {
	if c.stopped {
		c.violation(ErrYieldAfterStop, "")
		return false
	}
	if !c.r.live() {
		c.stopped = true
		return false
	}
	if len(c.pending) == 0 || c.pending[0] != dc {
		if slices.Contains(c.pending, dc) {
			c.violation(ErrContextOrder, "")
		} else {
			c.violation(ErrForeignContext, "")
		}
		return false
	}
	c.pending = c.pending[1:]
	return true
}

func (c *call) emit(yield func(*DataContext) bool, dc *DataContext) bool {
	if !yield(dc) || !c.r.live() {
		c.stopped = true
		return false
	}
	return true
}

// finish checks that every input context was consumed and answered, then
// releases the input stream.
func (c *call) finish() {
	if c.stop != nil {
		defer c.stop()
	}
	if c.stopped || !c.r.live() {
		return
	}
	if len(c.pending) > 0 {
		c.violation(ErrDroppedContext, fmt.Sprintf("%d unanswered", len(c.pending)))
		return
	}
	if !c.drained {
		if _, ok := c.next(); ok {
			c.violation(ErrInputNotDrained, "")
		}
	}
}

// vertices checks a vertex stream produced for dc, or for the query root
// when dc is nil.
func (c *call) vertices(dc *DataContext, it VertexIterator) iter.Seq[Vertex] {
	return func(yield func(Vertex) bool) {
		stopped := false
		it(func(v Vertex) bool {
			switch {
			case stopped:
				c.violation(ErrYieldAfterStop, "vertex stream")
				return false
			case !c.r.live():
				stopped = true
				return false
			case v == nil:
				c.violation(ErrNullVertex, "")
				stopped = true
				return false
			case dc != nil && dc.active == nil:
				c.violation(ErrResultForNullVertex, "neighbor")
				stopped = true
				return false
			}
			if !yield(v) {
				stopped = true
				return false
			}
			return true
		})
	}
}
