package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses query text without validating it against a schema.
func ParseQuery(name, source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ErrorPosition extracts the message and first location of a parser error.
func ErrorPosition(err error) (string, *Position) {
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) {
		return err.Error(), nil
	}
	var pos *Position
	if len(gqlErr.Locations) > 0 {
		pos = &Position{Line: gqlErr.Locations[0].Line, Column: gqlErr.Locations[0].Column}
		if file, ok := gqlErr.Extensions["file"].(string); ok {
			pos.Src = &ast.Source{Name: file}
		}
	}
	return gqlErr.Message, pos
}
