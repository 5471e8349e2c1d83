package rowschema

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/function61/gokit/assert"
)

type pool struct {
	Name   string
	Size   uint64
	Ratio  float64
	Health int
}

var poolFields = []Field[pool]{
	{
		Name:  "name",
		Type:  String,
		Title: "Pool",
		Value: func(p pool) any { return p.Name },
	},
	{
		Name:      "size",
		Type:      UnsignedInt,
		Title:     "Size",
		Formatter: func(value any) string { return fmt.Sprintf("%d bytes", value) },
		Value:     func(p pool) any { return p.Size },
	},
	{
		Name:  "ratio",
		Type:  Float,
		Title: "Ratio",
		Value: func(p pool) any { return p.Ratio },
	},
	{
		Name:     "health",
		Type:     Enum,
		Variants: []string{"ONLINE", "DEGRADED", "FAULTED"},
		Title:    "Health",
		Value:    func(p pool) any { return p.Health },
	},
}

func TestDerive(t *testing.T) {
	schema, err := Derive(poolFields)
	assert.Ok(t, err)

	columns := schema.Columns()
	assert.Assert(t, len(columns) == len(poolFields))

	for i, col := range columns {
		assert.Assert(t, col.Index == i)
		assert.EqualString(t, col.Title, poolFields[i].Title)
	}

	assert.EqualString(t, strings.Join(schema.Titles(), ","), "Pool,Size,Ratio,Health")

	// formatter wins over type default
	assert.EqualString(
		t,
		strings.Join(schema.RenderRow(pool{"tank", 2048, 1.5, 1}), " | "),
		"tank | 2048 bytes | 1.50 | DEGRADED")
}

func TestDeriveIsStable(t *testing.T) {
	first := MustDerive(poolFields)
	second := MustDerive(poolFields)

	assert.EqualString(t, fmt.Sprint(first.Titles()), fmt.Sprint(second.Titles()))

	for i, col := range first.Columns() {
		assert.Assert(t, col.Type == second.Columns()[i].Type)
	}
}

func TestToRow(t *testing.T) {
	row := MustDerive(poolFields).ToRow(pool{"tank", 2048, 1.5, 2})

	assert.Assert(t, len(row) == 4)
	assert.Assert(t, row[0].Type == String && row[0].Value.(string) == "tank")
	assert.Assert(t, row[1].Type == UnsignedInt && row[1].Value.(uint64) == 2048)
	assert.Assert(t, row[2].Type == Float && row[2].Value.(float64) == 1.5)
	assert.Assert(t, row[3].Type == Enum && row[3].Value.(int) == 2)
}

func TestTypeDefaults(t *testing.T) {
	for _, tc := range []struct {
		typ      SemanticType
		variants []string
		input    any
		output   string
	}{
		{String, nil, "pool/a", "pool/a"},
		{UnsignedInt, nil, uint64(1024), "1.00 KiB"},
		{UnsignedInt, nil, uint64(100), "100 B"},
		{Float, nil, 1.0, "1.00"},
		{Float, nil, 2.346, "2.35"},
		{Enum, []string{"filesystem", "volume"}, 1, "volume"},
		{Enum, []string{"filesystem", "volume"}, "snapshot", "snapshot"},
		{Enum, []string{"filesystem", "volume"}, 7, "7"},
	} {
		t.Run(tc.output, func(t *testing.T) {
			assert.EqualString(t, defaultFormatter(tc.typ, tc.variants)(tc.input), tc.output)
		})
	}
}

func TestRenderCellsPadsMissingColumns(t *testing.T) {
	columns := MustDerive(poolFields).Columns()

	rendered := RenderCells(columns, []Cell{{String, "tank"}})

	assert.EqualString(t, strings.Join(rendered, ","), "tank,-,-,-")
}

func TestSchemaErrors(t *testing.T) {
	valueOf := func(p pool) any { return p.Name }

	for _, tc := range []struct {
		name   string
		fields []Field[pool]
		errStr string
	}{
		{"empty", nil, "schema for pool: no fields"},
		{"no name", []Field[pool]{{Type: String, Value: valueOf}}, "schema for pool: empty field name"},
		{"duplicate", []Field[pool]{{Name: "a", Value: valueOf}, {Name: "a", Value: valueOf}}, "schema for pool: field a: duplicate field name"},
		{"no accessor", []Field[pool]{{Name: "a"}}, "schema for pool: field a: no value accessor"},
		{"enum without variants", []Field[pool]{{Name: "a", Type: Enum, Value: valueOf}}, "schema for pool: field a: enum without variants"},
		{"variants on string", []Field[pool]{{Name: "a", Variants: []string{"x"}, Value: valueOf}}, "schema for pool: field a: variants given for non-enum type String"},
		{"bogus type", []Field[pool]{{Name: "a", Type: SemanticType(42), Value: valueOf}}, "schema for pool: field a: unknown semantic type SemanticType(42)"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Derive(tc.fields)

			var schemaErr *SchemaError
			assert.Assert(t, errors.As(err, &schemaErr))
			assert.EqualString(t, err.Error(), tc.errStr)
		})
	}
}

func TestMustDerivePanics(t *testing.T) {
	defer func() {
		assert.Assert(t, recover() != nil)
	}()

	MustDerive[pool](nil)
}
