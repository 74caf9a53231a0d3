// Package executor implements the relational operators used to post-process
// rows a backend could not filter, join, group or sort itself. Every operator
// is a function from one or more DataSets to a DataSet.
package executor

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/satishbabariya/relq/schema"
)

// Compare orders two non-null values. Numbers compare numerically, times
// chronologically and booleans false before true. Any other combination is
// compared by string representation. ok is false when either value is null.
func Compare(a, b any) (c int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	switch {
	case isNumber(a) || isNumber(b):
		if c, ok := compareNumbers(a, b); ok {
			return c, true
		}
	case isTime(a) || isTime(b):
		if c, ok := compareTimes(a, b); ok {
			return c, true
		}
	case isBool(a) || isBool(b):
		x, errA := cast.ToBoolE(a)
		y, errB := cast.ToBoolE(b)
		if errA == nil && errB == nil {
			return compareBools(x, y), true
		}
	}
	if x, isBytes := a.([]byte); isBytes {
		if y, isBytes := b.([]byte); isBytes {
			return bytes.Compare(x, y), true
		}
	}
	return strings.Compare(ToString(a), ToString(b)), true
}

// Equal reports whether two non-null values compare equal.
func Equal(a, b any) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Comparator returns an ordering function for values of the given type. It is
// used by ORDER BY; nulls are handled by the caller.
func Comparator(typ schema.ColumnType) func(a, b any) int {
	switch {
	case typ.IsNumber():
		return func(a, b any) int {
			if c, ok := compareNumbers(a, b); ok {
				return c
			}
			c, _ := Compare(a, b)
			return c
		}
	case typ.IsTimeBased():
		return func(a, b any) int {
			if c, ok := compareTimes(a, b); ok {
				return c
			}
			c, _ := Compare(a, b)
			return c
		}
	case typ.IsLiteral():
		return func(a, b any) int { return strings.Compare(ToString(a), ToString(b)) }
	}
	return func(a, b any) int {
		c, _ := Compare(a, b)
		return c
	}
}

func compareNumbers(a, b any) (int, bool) {
	if x, okA := asInt64(a); okA {
		if y, okB := asInt64(b); okB {
			return cmp.Compare(x, y), true
		}
	}
	x, okA := ToDecimal(a)
	y, okB := ToDecimal(b)
	if !okA || !okB {
		return 0, false
	}
	return x.Cmp(y), true
}

func compareTimes(a, b any) (int, bool) {
	x, errA := ToTime(a)
	y, errB := ToTime(b)
	if errA != nil || errB != nil {
		return 0, false
	}
	return x.Compare(y), true
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal:
		return true
	}
	return false
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return cast.ToInt64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// ToDecimal converts a numeric, boolean or numeric string value to a decimal.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case float32:
		return decimal.NewFromFloat32(x), true
	case float64:
		return decimal.NewFromFloat(x), true
	case bool:
		if x {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil
	case time.Time:
		return decimal.NewFromInt(x.UnixMilli()), true
	}
	if n, ok := asInt64(v); ok {
		return decimal.NewFromInt(n), true
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

// ToString renders a value the way string comparisons and TO_STRING see it.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(timeLayout(x))
	case []byte:
		return string(x)
	case decimal.Decimal:
		return x.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func timeLayout(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return time.DateOnly
	}
	return time.DateTime
}

// ToTime converts strings, numbers (epoch milliseconds) and times to a time.
func ToTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return cast.ToTimeInDefaultLocationE(strings.TrimSpace(x), time.UTC)
	}
	if n, ok := asInt64(v); ok {
		return time.UnixMilli(n).UTC(), nil
	}
	return cast.ToTimeE(v)
}

// valueKey identifies a value for grouping and DISTINCT. Values of different
// Go types never share a key, except that all integer types are unified.
func valueKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case string:
		return "s:" + x
	case []byte:
		return "b:" + hex.EncodeToString(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case bool:
		return "o:" + strconv.FormatBool(x)
	case float32:
		return "f:" + strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case decimal.Decimal:
		return "d:" + x.String()
	}
	if n, ok := asInt64(v); ok {
		return "i:" + strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func rowKey(values []any) string {
	var sb strings.Builder
	for _, v := range values {
		k := valueKey(v)
		sb.WriteString(strconv.Itoa(len(k)))
		sb.WriteByte(':')
		sb.WriteString(k)
	}
	return sb.String()
}
