package ir

import (
	"errors"
	"fmt"
	"strings"

	language "github.com/hanpama/trellis/internal/language"
)

type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (v *Violation) String() string {
	if v.Line == 0 {
		return v.Message
	}
	return fmt.Sprintf("%s %s:%d:%d", v.Message, v.File, v.Line, v.Column)
}

// ViolationAt is the core constructor used by every violation template.
func ViolationAt(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos != nil {
		if pos.Src != nil {
			v.File = pos.Src.Name
		}
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}

func formatViolations(kind string, vs []*Violation) string {
	var sb strings.Builder
	sb.WriteString(kind)
	sb.WriteString(": violations found:\n")
	for _, v := range vs {
		sb.WriteString("- ")
		sb.WriteString(v.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SchemaError lists every structural rule a schema text violates.
type SchemaError []*Violation

func (e SchemaError) Error() string { return formatViolations("schema error", e) }

// ParseError reports query text that is not syntactically valid or uses
// unsupported syntax.
type ParseError []*Violation

func (e ParseError) Error() string { return formatViolations("parse error", e) }

// ValidationError reports a query referencing schema elements that do not
// exist or do not fit.
type ValidationError []*Violation

func (e ValidationError) Error() string { return formatViolations("validation error", e) }

// FrontendError reports a schema-consistent query using an unsupported
// combination of directives.
type FrontendError []*Violation

func (e FrontendError) Error() string { return formatViolations("frontend error", e) }

// ArgumentViolation is a problem with one query argument.
type ArgumentViolation struct {
	Variable string `json:"variable"`
	Message  string `json:"message"`
}

// QueryArgumentsError lists missing, unused, mistyped or unrepresentable
// argument values.
type QueryArgumentsError []*ArgumentViolation

func (e QueryArgumentsError) Error() string {
	var sb strings.Builder
	sb.WriteString("query arguments error:\n")
	for _, v := range e {
		fmt.Fprintf(&sb, "- $%s: %s\n", v.Variable, v.Message)
	}
	return sb.String()
}

// InvalidIRQueryError signals an inconsistent query tree found while
// lowering it into a plan. It always indicates an engine defect.
type InvalidIRQueryError struct {
	Reason string
}

func (e *InvalidIRQueryError) Error() string {
	return "invalid IR query: " + e.Reason
}

// Kind names the error class of err, or "" when err is not one of the
// query pipeline errors.
func Kind(err error) string {
	var (
		schemaErr     SchemaError
		parseErr      ParseError
		validationErr ValidationError
		frontendErr   FrontendError
		argumentsErr  QueryArgumentsError
		invalidIRErr  *InvalidIRQueryError
	)
	switch {
	case errors.As(err, &schemaErr):
		return "SchemaError"
	case errors.As(err, &parseErr):
		return "ParseError"
	case errors.As(err, &validationErr):
		return "ValidationError"
	case errors.As(err, &frontendErr):
		return "FrontendError"
	case errors.As(err, &argumentsErr):
		return "QueryArgumentsError"
	case errors.As(err, &invalidIRErr):
		return "InvalidIRQueryError"
	}
	return ""
}

// Violations returns the positioned violations carried by err, if any.
func Violations(err error) []*Violation {
	var (
		schemaErr     SchemaError
		parseErr      ParseError
		validationErr ValidationError
		frontendErr   FrontendError
	)
	switch {
	case errors.As(err, &schemaErr):
		return schemaErr
	case errors.As(err, &parseErr):
		return parseErr
	case errors.As(err, &validationErr):
		return validationErr
	case errors.As(err, &frontendErr):
		return frontendErr
	}
	return nil
}
