package language

import "github.com/vektah/gqlparser/v2/ast"

// Schema documents.
type (
	SchemaDocument     = ast.SchemaDocument
	Definition         = ast.Definition
	DefinitionKind     = ast.DefinitionKind
	FieldDefinition    = ast.FieldDefinition
	ArgumentDefinition = ast.ArgumentDefinition
	Type               = ast.Type
)

const (
	Object    DefinitionKind = ast.Object
	Interface DefinitionKind = ast.Interface
)

// Query documents.
type (
	QueryDocument  = ast.QueryDocument
	Operation      = ast.Operation
	SelectionSet   = ast.SelectionSet
	Field          = ast.Field
	InlineFragment = ast.InlineFragment
	FragmentSpread = ast.FragmentSpread
	Directive      = ast.Directive
	DirectiveList  = ast.DirectiveList
)

const Query Operation = ast.Query

// Values appearing in arguments and defaults.
type Value = ast.Value

const (
	Variable     = ast.Variable
	IntValue     = ast.IntValue
	FloatValue   = ast.FloatValue
	StringValue  = ast.StringValue
	BlockValue   = ast.BlockValue
	BooleanValue = ast.BooleanValue
	NullValue    = ast.NullValue
	EnumValue    = ast.EnumValue
	ListValue    = ast.ListValue
	ObjectValue  = ast.ObjectValue
)

type Position = ast.Position
