package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the layout used when time values are rendered as literals.
const TimeLayout = "2006-01-02 15:04:05"

// FormatOperand renders a filter operand or function parameter as a literal.
func FormatOperand(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case *SelectItem:
		return x.ToSQL(false)
	case *Parameter:
		return x.String()
	case *Query:
		return "(" + x.ToSQL() + ")"
	case string:
		return quote(x)
	case []byte:
		return quote(string(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return quote(x.Format(TimeLayout))
	case []any:
		parts := make([]string, len(x))
		for i, elem := range x {
			parts[i] = FormatOperand(elem)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case fmt.Stringer:
		return quote(x.String())
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// String renders the query.
func (q *Query) String() string { return q.ToSQL() }

// ToSQL renders the query as a canonical SQL-like string.
func (q *Query) ToSQL() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, item := range q.selectItems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.ToSQL(true))
	}
	if len(q.fromItems) > 0 {
		sb.WriteString(" FROM ")
		for i, f := range q.fromItems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.ToSQL())
		}
	}
	writeFilters(&sb, " WHERE ", q.whereItems)
	if len(q.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, g := range q.groupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(g.String())
		}
	}
	writeFilters(&sb, " HAVING ", q.having)
	if len(q.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.orderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.String())
		}
	}
	if n, ok := q.MaxRows(); ok {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(n))
	}
	if first := q.FirstRow(); first > 1 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(first - 1))
	}
	return sb.String()
}

func writeFilters(sb *strings.Builder, keyword string, filters []*FilterItem) {
	if len(filters) == 0 {
		return
	}
	sb.WriteString(keyword)
	for i, f := range filters {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(f.ToSQL())
	}
}
