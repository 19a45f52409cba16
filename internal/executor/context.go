package executor

import (
	"maps"
	"slices"

	value "github.com/hanpama/trellis/internal/value"
)

// DataContext is the state of one partial result row while it moves through
// the plan: the vertex currently being resolved, the vertices suspended
// while a nested edge is explored, and the tags and outputs recorded so far.
type DataContext struct {
	active Vertex

	// values caches the properties resolved on the active vertex.
	values map[string]value.Value

	tags    map[string]tagValue
	outputs map[string]value.Value
	stack   []frame
}

type tagValue struct {
	value value.Value

	// missing is set when the tag was recorded on a null vertex.
	missing bool
}

type frame struct {
	vertex Vertex
	values map[string]value.Value
}

func newDataContext(v Vertex) *DataContext {
	return &DataContext{
		active:  v,
		values:  make(map[string]value.Value),
		tags:    make(map[string]tagValue),
		outputs: make(map[string]value.Value),
	}
}

// ActiveVertex returns the vertex being resolved, or nil for a null vertex.
func (c *DataContext) ActiveVertex() Vertex { return c.active }

// Output returns a value recorded for the named output so far.
func (c *DataContext) Output(name string) (value.Value, bool) {
	v, ok := c.outputs[name]
	return v, ok
}

// enter returns a child context positioned on v with the current vertex
// suspended.
func (c *DataContext) enter(v Vertex) *DataContext {
	stack := slices.Clone(c.stack)
	stack = append(stack, frame{vertex: c.active, values: c.values})
	return &DataContext{
		active:  v,
		values:  make(map[string]value.Value),
		tags:    maps.Clone(c.tags),
		outputs: maps.Clone(c.outputs),
		stack:   stack,
	}
}

// leave resumes the most recently suspended vertex.
func (c *DataContext) leave() {
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.active = top.vertex
	c.values = top.values
}

func (c *DataContext) record(name string, v value.Value, tags, outputs []string) {
	c.values[name] = v
	for _, t := range tags {
		c.tags[t] = tagValue{value: v, missing: c.active == nil}
	}
	for _, o := range outputs {
		c.outputs[o] = v
	}
}
