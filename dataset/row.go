package dataset

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// Alignment is the horizontal alignment hint of a styled value.
type Alignment int

const (
	AlignDefault Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
)

// Style carries display hints for one value. The zero value means unstyled.
type Style struct {
	Bold       bool
	Italic     bool
	Underline  bool
	Foreground string
	Background string
	Align      Alignment
}

// IsZero reports whether the style carries no hints.
func (s Style) IsZero() bool { return s == Style{} }

// Row is an ordered sequence of values positioned against one header.
type Row struct {
	header *Header
	values []any
	styles []Style
}

// NewRow creates a row. Missing trailing values are null; extra values are
// dropped.
func NewRow(h *Header, values ...any) *Row {
	v := make([]any, h.Len())
	copy(v, values)
	return &Row{header: h, values: v}
}

// NewStyledRow creates a row with per-value styles.
func NewStyledRow(h *Header, values []any, styles []Style) *Row {
	r := NewRow(h, values...)
	if len(styles) > 0 {
		r.styles = make([]Style, h.Len())
		copy(r.styles, styles)
	}
	return r
}

// Header returns the header the row is positioned against.
func (r *Row) Header() *Header { return r.header }

// Len returns the number of values.
func (r *Row) Len() int { return len(r.values) }

// Values returns a copy of the values.
func (r *Row) Values() []any { return append([]any(nil), r.values...) }

// Value returns the value at position i.
func (r *Row) Value(i int) any { return r.values[i] }

// Get returns the value of item.
func (r *Row) Get(item *query.SelectItem) (any, bool) {
	i := r.header.IndexOf(item)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// GetColumn returns the value of the first bare reference to c.
func (r *Row) GetColumn(c *schema.Column) (any, bool) {
	i := r.header.IndexOfColumn(c)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Style returns the style of the value at position i.
func (r *Row) Style(i int) Style {
	if r.styles == nil {
		return Style{}
	}
	return r.styles[i]
}

// Styles returns a copy of the styles, or nil when the row is unstyled.
func (r *Row) Styles() []Style {
	if r.styles == nil {
		return nil
	}
	return append([]Style(nil), r.styles...)
}

// Project returns the values at the given positions as a row of h.
// A negative position yields null.
func (r *Row) Project(h *Header, positions []int) *Row {
	out := &Row{header: h, values: make([]any, len(positions))}
	if r.styles != nil {
		out.styles = make([]Style, len(positions))
	}
	for i, p := range positions {
		if p < 0 {
			continue
		}
		out.values[i] = r.values[p]
		if r.styles != nil {
			out.styles[i] = r.styles[p]
		}
	}
	return out
}

// Equal reports whether both rows have equivalent headers and equal values.
func (r *Row) Equal(o *Row) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil || !r.header.Equal(o.header) {
		return false
	}
	return ValuesEqual(r.values, o.values)
}

func (r *Row) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = fmt.Sprint(v)
	}
	return "Row[values=[" + strings.Join(parts, ", ") + "]]"
}

// ValuesEqual compares two value tuples. Time values are compared as instants
// and byte slices by content.
func ValuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}
