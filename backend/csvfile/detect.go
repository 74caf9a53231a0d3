package csvfile

import (
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/relq/schema"
)

var (
	dateLayouts      = []string{"2006-01-02"}
	timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
)

// detector infers the type of one column from its cells. The first non-empty
// cell sets the type. Integers widen to doubles. A text column takes any
// cell, otherwise a cell of another type reads as null.
type detector struct {
	typ      schema.ColumnType
	seen     bool
	nullable bool
	size     int
}

func (d *detector) add(cell string) {
	if cell == "" {
		d.nullable = true
		return
	}
	d.size = max(d.size, len(cell))
	t := cellType(cell)
	switch {
	case !d.seen:
		d.typ, d.seen = t, true
	case d.typ == t, d.typ == schema.TypeVarchar:
	case d.typ.IsNumber() && t.IsNumber():
		d.typ = schema.TypeDouble
	default:
		d.nullable = true
	}
}

func (d *detector) result() (schema.ColumnType, bool, int) {
	if !d.seen {
		return schema.TypeVarchar, true, 0
	}
	if d.typ == schema.TypeVarchar {
		return d.typ, d.nullable, d.size
	}
	return d.typ, d.nullable, 0
}

func cellType(cell string) schema.ColumnType {
	if numeric(cell) {
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return schema.TypeBigInt
		}
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return schema.TypeDouble
		}
	}
	if isBool(cell) {
		return schema.TypeBoolean
	}
	if _, ok := parseTime(cell, dateLayouts); ok {
		return schema.TypeDate
	}
	if _, ok := parseTime(cell, timestampLayouts); ok {
		return schema.TypeTimestamp
	}
	return schema.TypeVarchar
}

// numeric rejects words ParseFloat accepts, such as "NaN" and "Inf".
func numeric(cell string) bool {
	c := cell[0]
	if c == '-' || c == '+' {
		if len(cell) == 1 {
			return false
		}
		c = cell[1]
	}
	return c == '.' || (c >= '0' && c <= '9')
}

func isBool(cell string) bool {
	return strings.EqualFold(cell, "true") || strings.EqualFold(cell, "false")
}

func parseTime(cell string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCell converts a cell to the Go value of t. Empty cells and cells that
// do not parse as t are null.
func parseCell(cell string, t schema.ColumnType) any {
	if cell == "" {
		return nil
	}
	switch t {
	case schema.TypeBigInt:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case schema.TypeDouble:
		if !numeric(cell) {
			return nil
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	case schema.TypeBoolean:
		if isBool(cell) {
			return strings.EqualFold(cell, "true")
		}
	case schema.TypeDate:
		if v, ok := parseTime(cell, dateLayouts); ok {
			return v
		}
	case schema.TypeTimestamp:
		if v, ok := parseTime(cell, timestampLayouts); ok {
			return v
		}
	default:
		return cell
	}
	return nil
}
