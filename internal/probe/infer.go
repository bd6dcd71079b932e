package probe

import (
	"strings"

	"csvplan/internal/convert"
	"csvplan/internal/schema"
)

// Column is the inference result for one CSV column.
type Column struct {
	// Header is the name as it appears in the file.
	Header string
	// Name is the normalized destination name.
	Name string

	Type schema.Type

	// Optional is set when the sample had empty values.
	Optional bool
	// Trim is set when any sampled value carried surrounding spaces.
	Trim bool
}

// inferColumn guesses the narrowest type every non-empty value parses as,
// using the same converters the decoder runs. Order: int, long, boolean,
// double, string. A column with no non-empty values is an optional string.
func inferColumn(values []string) (typ schema.Type, optional, trim bool) {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		tv := strings.TrimSpace(v)
		if tv != v {
			trim = true
		}
		if tv == "" {
			optional = true
			continue
		}
		nonEmpty = append(nonEmpty, tv)
	}
	if len(nonEmpty) == 0 {
		return schema.String, true, trim
	}

	switch {
	case allMatch(nonEmpty, isInt):
		typ = schema.Int
	case allMatch(nonEmpty, isLong):
		typ = schema.Long
	case allMatch(nonEmpty, isBool):
		typ = schema.Boolean
	case allMatch(nonEmpty, isFloat):
		typ = schema.Double
	default:
		typ = schema.String
	}
	return typ, optional, trim
}

// allMatch reports whether every value satisfies fn.
func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	_, err := convert.ParseInt([]byte(s))
	return err == nil
}

func isLong(s string) bool {
	_, err := convert.ParseInt64([]byte(s))
	return err == nil
}

func isBool(s string) bool {
	_, err := convert.ParseBool([]byte(s))
	return err == nil
}

func isFloat(s string) bool {
	_, err := convert.ParseFloat([]byte(s))
	return err == nil
}
