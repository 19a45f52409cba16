package executor

import (
	"errors"
	"strings"
)

// Adapter contract violations. *AdapterError unwraps to one of these, or to
// the error an adapter passed to ReportError.
var (
	ErrNilIterator         = errors.New("adapter returned a nil iterator")
	ErrForeignContext      = errors.New("adapter yielded a context it was not given")
	ErrContextOrder        = errors.New("adapter yielded contexts out of order")
	ErrDroppedContext      = errors.New("adapter did not yield a result for every context")
	ErrInputNotDrained     = errors.New("adapter did not consume every input context")
	ErrYieldAfterStop      = errors.New("adapter yielded after iteration was stopped")
	ErrNullVertex          = errors.New("adapter produced a null vertex")
	ErrResultForNullVertex = errors.New("adapter produced a non-null result for a null vertex")
	ErrInvalidValue        = errors.New("adapter produced a property value that does not conform to the property type")
)

// AdapterError aborts a result stream because of an adapter. Rows yielded
// before it remain valid.
type AdapterError struct {
	Method   string
	TypeName string
	Field    string
	Err      error
	Detail   string
}

func (e *AdapterError) Error() string {
	var sb strings.Builder
	sb.WriteString("adapter error in ")
	sb.WriteString(e.Method)
	switch {
	case e.TypeName != "":
		sb.WriteString("(" + e.TypeName + "." + e.Field + ")")
	case e.Field != "":
		sb.WriteString("(" + e.Field + ")")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *AdapterError) Unwrap() error { return e.Err }
