package pipeline

import (
	"fmt"

	"csvplan/internal/config"
	"csvplan/internal/row"
	"csvplan/internal/schema"
)

// BuildSchema turns configured columns into a schema over pooled rows. Column
// i writes its converted value into Row.V[i]; Int columns store int32 so the
// value matches a 32-bit INTEGER column in every backend.
func BuildSchema(cols []config.Column) (*schema.Schema[row.Row], error) {
	width := len(cols)
	out := make([]*schema.Column[row.Row], 0, width)
	for i, c := range cols {
		typ, err := schema.ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("columns[%d]: %w", i, err)
		}
		opts, err := columnOptions(c)
		if err != nil {
			return nil, fmt.Errorf("columns[%d]: %w", i, err)
		}
		out = append(out, newColumn(c.Name, i, typ, opts))
	}
	return schema.New(func() *row.Row { return row.Get(width) }, out...)
}

func newColumn(name string, i int, typ schema.Type, opts []schema.Option) *schema.Column[row.Row] {
	switch typ {
	case schema.Int:
		return schema.SetInt(name, func(r *row.Row, v int) { r.V[i] = int32(v) }, opts...)
	case schema.Long:
		return schema.SetLong(name, func(r *row.Row, v int64) { r.V[i] = v }, opts...)
	case schema.Double:
		return schema.SetDouble(name, func(r *row.Row, v float64) { r.V[i] = v }, opts...)
	case schema.Boolean:
		return schema.SetBool(name, func(r *row.Row, v bool) { r.V[i] = v }, opts...)
	default:
		return schema.SetString(name, func(r *row.Row, v string) { r.V[i] = v }, opts...)
	}
}

func columnOptions(c config.Column) ([]schema.Option, error) {
	var opts []schema.Option
	if c.Optional {
		opts = append(opts, schema.Optional())
	}
	switch c.Trim {
	case "":
	case "both":
		opts = append(opts, schema.Trim())
	case "leading":
		opts = append(opts, schema.TrimLeading())
	case "trailing":
		opts = append(opts, schema.TrimTrailing())
	default:
		return nil, fmt.Errorf("unknown trim %q", c.Trim)
	}
	return opts, nil
}
