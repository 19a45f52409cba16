package protoreg

import (
	ir "github.com/hanpama/trellis/internal/ir"
	schema "github.com/hanpama/trellis/internal/schema"
	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type resolvedType struct {
	isRepeated bool
	isOptional bool
	fieldType  *protobuilder.FieldType
}

// resolveTypeRef maps a field type onto a proto field. Nullable singular
// properties become proto3 optional fields; lists become repeated fields and
// lose the distinction between null and empty. Edges to a single vertex are
// message fields, which carry presence already.
func (b *builder) resolveTypeRef(f *schema.Field) resolvedType {
	t := f.Type.Nullable()
	repeated := t.Kind == ir.TypeRefKindList
	var ft *protobuilder.FieldType
	if f.IsEdge() {
		ft = protobuilder.FieldTypeMessage(b.messages[t.NamedType()])
	} else {
		ft = protobuilder.FieldTypeScalar(scalars[t.NamedType()])
	}
	return resolvedType{
		isRepeated: repeated,
		isOptional: !repeated && !f.IsEdge() && !f.Type.IsNonNull(),
		fieldType:  ft,
	}
}

var scalars = map[string]protoreflect.Kind{
	ir.Int:     protoreflect.Int64Kind,
	ir.Float:   protoreflect.DoubleKind,
	ir.String:  protoreflect.StringKind,
	ir.ID:      protoreflect.StringKind,
	ir.Boolean: protoreflect.BoolKind,
}
