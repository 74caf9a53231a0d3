package sqldb

import (
	"github.com/spf13/cast"

	"github.com/satishbabariya/relq/query/executor"
	"github.com/satishbabariya/relq/schema"
)

// convert normalizes a scanned driver value to the kind of t. Drivers that
// report numbers or times as text (MySQL without parseTime, NUMERIC in
// PostgreSQL) are the main reason this exists. Values that do not convert
// are returned as read.
func convert(v any, t schema.ColumnType) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok && t.Kind() != schema.KindBytes {
		v = string(b)
	}
	var (
		out any
		err error
	)
	switch t.Kind() {
	case schema.KindString:
		out, err = cast.ToStringE(v)
	case schema.KindInt:
		out, err = cast.ToInt64E(v)
	case schema.KindFloat:
		out, err = cast.ToFloat64E(v)
	case schema.KindBool:
		out, err = cast.ToBoolE(v)
	case schema.KindTime:
		out, err = executor.ToTime(v)
	default:
		return v
	}
	if err != nil {
		return v
	}
	return out
}

func convertRow(values []any, types []schema.ColumnType) {
	for i, v := range values {
		values[i] = convert(v, types[i])
	}
}
