package events

import "time"

// QueryStart is emitted when a query starts producing rows.
type QueryStart struct {
	Query     string
	StartEdge string
	Arguments map[string]any
}

// QueryFinish is emitted once the result stream of a query ends, is abandoned
// by its consumer, or fails before producing any row.
type QueryFinish struct {
	Query    string
	Kind     string // error kind, empty on success
	Err      error
	Rows     int
	Duration time.Duration
}

// AdapterCall is emitted for every adapter method invocation.
type AdapterCall struct {
	Method   string
	TypeName string
	Field    string
}
