package rowschema

import (
	"reflect"
	"strings"
)

// Derives field descriptors from a struct's `column` tags:
//
//	Name string `column:"Dataset"`
//	Used uint64 `column:"Used,name=used,formatter=bytes"`
//	Kind int    `column:"Kind,enum=filesystem|volume"`
//
// field name defaults to the struct field's name. untagged and unexported fields are skipped. formatter names are looked up from
// "formatters" (use Formatters if you don't have custom ones).
func FieldsFromStruct[T any](formatters map[string]Formatter) ([]Field[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	typeName := typeNameOf[T]()

	if typ.Kind() != reflect.Struct {
		return nil, &SchemaError{Type: typeName, Reason: "not a struct; no fixed field list"}
	}

	fields := []Field[T]{}

	for i := 0; i < typ.NumField(); i++ {
		structField := typ.Field(i)

		tag, has := structField.Tag.Lookup("column")
		if !has || !structField.IsExported() {
			continue
		}

		field, err := fieldFromTag[T](structField, i, tag, formatters)
		if err != nil {
			err.Type = typeName
			return nil, err
		}

		fields = append(fields, field)
	}

	if len(fields) == 0 {
		return nil, &SchemaError{Type: typeName, Reason: "no fields with `column` tag"}
	}

	return fields, nil
}

func fieldFromTag[T any](
	structField reflect.StructField,
	idx int,
	tag string,
	formatters map[string]Formatter,
) (Field[T], *SchemaError) {
	fail := func(reason string) (Field[T], *SchemaError) {
		return Field[T]{}, &SchemaError{Field: structField.Name, Reason: reason}
	}

	parts := strings.Split(tag, ",")

	field := Field[T]{
		Name:  structField.Name,
		Title: parts[0],
		Value: func(record T) any {
			return reflect.ValueOf(record).Field(idx).Interface()
		},
	}

	for _, option := range parts[1:] {
		key, value, _ := strings.Cut(option, "=")

		switch key {
		case "name":
			field.Name = value
		case "formatter":
			formatter, found := formatters[value]
			if !found {
				return fail("unknown formatter: " + value)
			}
			field.Formatter = formatter
		case "enum":
			field.Variants = strings.Split(value, "|")
		default:
			return fail("unknown tag option: " + key)
		}
	}

	semanticType, ok := semanticTypeOf(structField.Type.Kind(), len(field.Variants) > 0)
	if !ok {
		return fail("unsupported kind " + structField.Type.Kind().String())
	}
	field.Type = semanticType

	return field, nil
}

func semanticTypeOf(kind reflect.Kind, hasVariants bool) (SemanticType, bool) {
	if hasVariants {
		switch kind {
		case reflect.String, reflect.Int, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return Enum, true
		default:
			return 0, false
		}
	}

	switch kind {
	case reflect.String:
		return String, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return UnsignedInt, true
	case reflect.Float32, reflect.Float64:
		return Float, true
	default:
		return 0, false
	}
}
