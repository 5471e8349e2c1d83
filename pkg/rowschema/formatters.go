package rowschema

import (
	"fmt"
	"strconv"

	"github.com/function61/zfsview/pkg/byteshuman"
)

// formatters that struct tags can refer to by name ("formatter=bytes")
var Formatters = map[string]Formatter{
	"bytes": HumanBytes,
	"ratio": Ratio,
}

// 1024 => "1.00 KiB". non-integer values are printed as-is
func HumanBytes(value any) string {
	num, ok := toUint64(value)
	if !ok {
		return fmt.Sprint(value)
	}

	return byteshuman.Humanize(num)
}

// 1.5 => "1.50x"
func Ratio(value any) string {
	f, ok := toFloat64(value)
	if !ok {
		return fmt.Sprint(value)
	}

	return strconv.FormatFloat(f, 'f', 2, 64) + "x"
}

func defaultFormatter(typ SemanticType, variants []string) Formatter {
	switch typ {
	case UnsignedInt:
		return HumanBytes
	case Float:
		return plainDecimal
	case Enum:
		return func(value any) string {
			return enumVariant(value, variants)
		}
	default:
		return verbatim
	}
}

func verbatim(value any) string {
	if str, ok := value.(string); ok {
		return str
	}

	return fmt.Sprint(value)
}

func plainDecimal(value any) string {
	f, ok := toFloat64(value)
	if !ok {
		return fmt.Sprint(value)
	}

	return strconv.FormatFloat(f, 'f', 2, 64)
}

// enum values can be either variant indices or the variant names themselves
func enumVariant(value any, variants []string) string {
	if str, ok := value.(string); ok {
		return str
	}

	if idx, ok := toUint64(value); ok && idx < uint64(len(variants)) {
		return variants[idx]
	}

	return fmt.Sprint(value)
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case int:
		return uint64(v), v >= 0
	case int64:
		return uint64(v), v >= 0
	case int32:
		return uint64(v), v >= 0
	default:
		return 0, false
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}
