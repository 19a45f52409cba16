package protoreg

import (
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

func nameProtoVertex(typeName string) protoreflect.Name {
	return protoreflect.Name(typeName + "Vertex")
}

func nameProtoDataset(rootName string) protoreflect.Name {
	return protoreflect.Name(rootName + "Dataset")
}

func nameProtoField(fieldName string) protoreflect.Name {
	return protoreflect.Name(snakeCase(fieldName))
}

// snakeCase converts a string from CamelCase or PascalCase to snake_case.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
