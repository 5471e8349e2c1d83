// Derives a uniform column schema and a record-to-row conversion from per-field descriptors,
// so record types don't need hand-written glue for each column they display.
package rowschema

import (
	"fmt"
)

type SemanticType int

const (
	String SemanticType = iota
	UnsignedInt
	Float
	Enum
)

func (s SemanticType) String() string {
	switch s {
	case String:
		return "String"
	case UnsignedInt:
		return "UnsignedInt"
	case Float:
		return "Float"
	case Enum:
		return "Enum"
	default:
		return fmt.Sprintf("SemanticType(%d)", int(s))
	}
}

// turns a field's value into its display string
type Formatter func(value any) string

// static metadata for one field of record type T
type Field[T any] struct {
	Name      string
	Type      SemanticType
	Variants  []string // only for Enum
	Title     string
	Formatter Formatter // optional. type default is used if nil
	Value     func(record T) any
}

type Column struct {
	Title  string
	Index  int
	Type   SemanticType
	render Formatter
}

func (c Column) Render(value any) string {
	return c.render(value)
}

// typed value of a single column in a row
type Cell struct {
	Type  SemanticType
	Value any
}

type Schema[T any] struct {
	fields  []Field[T]
	columns []Column
}

// columns are in field declaration order. fails only for invalid definitions, so callers
// usually call this once at startup (see MustDerive())
func Derive[T any](fields []Field[T]) (*Schema[T], error) {
	typeName := typeNameOf[T]()

	if len(fields) == 0 {
		return nil, &SchemaError{Type: typeName, Reason: "no fields"}
	}

	seen := map[string]bool{}

	columns := make([]Column, 0, len(fields))
	for idx, field := range fields {
		if err := validateField(field, seen); err != nil {
			err.Type = typeName
			return nil, err
		}

		seen[field.Name] = true

		title := field.Title
		if title == "" {
			title = field.Name
		}

		render := field.Formatter
		if render == nil {
			render = defaultFormatter(field.Type, field.Variants)
		}

		columns = append(columns, Column{
			Title:  title,
			Index:  idx,
			Type:   field.Type,
			render: render,
		})
	}

	return &Schema[T]{
		fields:  append([]Field[T]{}, fields...),
		columns: columns,
	}, nil
}

func MustDerive[T any](fields []Field[T]) *Schema[T] {
	schema, err := Derive(fields)
	if err != nil {
		panic(err)
	}

	return schema
}

func (s *Schema[T]) Columns() []Column {
	return append([]Column{}, s.columns...)
}

func (s *Schema[T]) Titles() []string {
	titles := make([]string, len(s.columns))
	for i, col := range s.columns {
		titles[i] = col.Title
	}

	return titles
}

// pure, no side effects
func (s *Schema[T]) ToRow(record T) []Cell {
	row := make([]Cell, len(s.fields))
	for i, field := range s.fields {
		row[i] = Cell{
			Type:  field.Type,
			Value: field.Value(record),
		}
	}

	return row
}

// materializes a display row without going through any tree
func (s *Schema[T]) RenderRow(record T) []string {
	return RenderCells(s.columns, s.ToRow(record))
}

// cells beyond the columns are ignored, columns without a cell render as NotApplicable
func RenderCells(columns []Column, cells []Cell) []string {
	rendered := make([]string, len(columns))
	for i, col := range columns {
		if i >= len(cells) {
			rendered[i] = NotApplicable
			continue
		}

		rendered[i] = col.Render(cells[i].Value)
	}

	return rendered
}

// displayed for columns a record does not have
const NotApplicable = "-"

func validateField[T any](field Field[T], seen map[string]bool) *SchemaError {
	fail := func(reason string) *SchemaError {
		return &SchemaError{Field: field.Name, Reason: reason}
	}

	switch {
	case field.Name == "":
		return fail("empty field name")
	case seen[field.Name]:
		return fail("duplicate field name")
	case field.Value == nil:
		return fail("no value accessor")
	}

	switch field.Type {
	case String, UnsignedInt, Float:
		if len(field.Variants) > 0 {
			return fail("variants given for non-enum type " + field.Type.String())
		}
	case Enum:
		if len(field.Variants) == 0 {
			return fail("enum without variants")
		}
	default:
		return fail("unknown semantic type " + field.Type.String())
	}

	return nil
}
