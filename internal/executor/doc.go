// Package executor interprets query plans against an Adapter, producing a
// lazy, order-preserving stream of result rows.
//
// # Overview
//
// A plan is a tree of vertices, each holding an ordered list of steps. Run
// turns it into a chain of iterator transformers over *DataContext, one per
// step, each consuming the context stream of its predecessor. Nothing is
// resolved until the consumer pulls a row, and each row pulls only the
// contexts and adapter results it needs.
//
// # Data contexts
//
// A DataContext is one partial result row. It carries:
//   - the active vertex the next step resolves against (nil for a null vertex
//     inside a missing @optional edge),
//   - the property values already resolved on that vertex,
//   - the tags and outputs recorded so far,
//   - a stack of suspended vertices, one per edge currently being explored.
//
// Crossing an edge creates one child context per neighbor, copying tags and
// outputs and suspending the parent vertex. Once the steps of the target
// vertex have run, the parent vertex is resumed and the remaining steps of
// the parent continue on the child.
//
// # Steps
//
// On every vertex the steps run in this order:
//
//  1. Coercion: contexts whose vertex is not of the coerced type are dropped.
//  2. Properties recorded as tags.
//  3. Filters, each preceded by the property it tests.
//  4. Properties recorded only as outputs.
//  5. Edges, in query order:
//     - Neighbor: one child per neighbor. A context without neighbors is
//       dropped unless the edge is @optional, in which case it continues
//       with a null vertex.
//     - Fold: the target steps run to completion over the neighbors of each
//       context, and one list per folded output is attached. Folding never
//       removes rows.
//     - Recurse: the origin and every vertex reachable in 1..depth steps
//       are visited depth first in pre-order, one child per path.
//
// Contexts that reach the end of the root vertex become rows holding every
// output of the query.
//
// # Adapter contract
//
// See adapter.go for the contract adapters must honor. The executor checks
// it on every call and ends the stream with an *AdapterError at the first
// violation. Rows already yielded remain valid.
//
// # Concurrency
//
// One execution runs on the goroutine ranging over its result stream.
// Adapter input streams are driven through iter.Pull, whose coroutines hand
// control back and forth without running in parallel. Different executions
// may run concurrently when the adapter allows it.
package executor
