package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/satishbabariya/relq/query"
)

// ApplyScalar evaluates a scalar function over a value. Values that cannot be
// converted yield null rather than an error.
func ApplyScalar(fn query.FunctionType, v any, params []any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch fn {
	case query.FunctionToString:
		return ToString(v), nil
	case query.FunctionToNumber:
		return toNumber(v), nil
	case query.FunctionToDate:
		return toDate(v, params), nil
	case query.FunctionToBoolean:
		return toBoolean(v), nil
	case query.FunctionMapValue:
		if len(params) == 0 {
			return nil, fmt.Errorf("%s requires a path parameter", fn)
		}
		return MapValue(v, ToString(params[0])), nil
	}
	return nil, fmt.Errorf("%w: scalar function %s", ErrUnsupported, fn)
}

func toNumber(v any) any {
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixMilli())
	}
	d, ok := ToDecimal(v)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

func toDate(v any, params []any) any {
	if len(params) > 0 {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(ToString(params[0]), strings.TrimSpace(s)); err == nil {
				return t
			}
			return nil
		}
	}
	t, err := ToTime(v)
	if err != nil {
		return nil
	}
	return t
}

func toBoolean(v any) any {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true
		case "no", "n", "off":
			return false
		}
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil
	}
	return b
}

// MapValue looks up a dotted path such as "address.lines[0]" in nested maps
// and lists. Missing keys yield nil.
func MapValue(v any, path string) any {
	current := v
	for _, part := range strings.Split(path, ".") {
		key, indexes := splitIndexes(part)
		if key != "" {
			m, err := cast.ToStringMapE(current)
			if err != nil {
				return nil
			}
			current = m[key]
		}
		for _, i := range indexes {
			list, err := cast.ToSliceE(current)
			if err != nil || i < 0 || i >= len(list) {
				return nil
			}
			current = list[i]
		}
		if current == nil {
			return nil
		}
	}
	return current
}

func splitIndexes(part string) (string, []int) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		return part, nil
	}
	key := part[:open]
	var indexes []int
	for rest := part[open:]; strings.HasPrefix(rest, "["); {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			break
		}
		indexes = append(indexes, n)
		rest = rest[end+1:]
	}
	return key, indexes
}
