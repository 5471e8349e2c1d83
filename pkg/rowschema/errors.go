package rowschema

import (
	"fmt"
	"reflect"
)

// definition-time error: a usable schema can't be constructed for the type
type SchemaError struct {
	Type   string
	Field  string // empty if the error concerns the whole type
	Reason string
}

func (s *SchemaError) Error() string {
	if s.Field == "" {
		return fmt.Sprintf("schema for %s: %s", s.Type, s.Reason)
	}

	return fmt.Sprintf("schema for %s: field %s: %s", s.Type, s.Field, s.Reason)
}

func typeNameOf[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Name() == "" {
		return typ.String()
	}

	return typ.Name()
}
