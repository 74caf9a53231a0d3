// Package dataset defines the row and cursor types every stage of query
// execution consumes and produces.
package dataset

import (
	"strings"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// Header is the ordered, immutable list of select items that defines the shape
// of a result.
type Header struct {
	items []*query.SelectItem
	index map[*query.SelectItem]int
}

// NewHeader creates a header for the given items.
func NewHeader(items ...*query.SelectItem) *Header {
	h := &Header{
		items: append([]*query.SelectItem(nil), items...),
		index: make(map[*query.SelectItem]int, len(items)),
	}
	for i, item := range h.items {
		if _, dup := h.index[item]; !dup {
			h.index[item] = i
		}
	}
	return h
}

// HeaderOf creates a header of bare column items.
func HeaderOf(cols ...*schema.Column) *Header {
	items := make([]*query.SelectItem, len(cols))
	for i, c := range cols {
		items[i] = query.NewColumnItem(c)
	}
	return NewHeader(items...)
}

// Len returns the number of items.
func (h *Header) Len() int { return len(h.items) }

// Items returns a copy of the items.
func (h *Header) Items() []*query.SelectItem {
	return append([]*query.SelectItem(nil), h.items...)
}

// Item returns the item at position i.
func (h *Header) Item(i int) *query.SelectItem { return h.items[i] }

// IndexOf returns the position of item, or -1. The same pointer wins, then an
// equal item, then an equal item under another alias, then an item with the
// same column and function regardless of alias and from item.
func (h *Header) IndexOf(item *query.SelectItem) int {
	if item == nil {
		return -1
	}
	if i, ok := h.index[item]; ok {
		return i
	}
	for _, match := range []func(a, b *query.SelectItem) bool{
		(*query.SelectItem).Equal,
		(*query.SelectItem).EqualIgnoreAlias,
		(*query.SelectItem).Matches,
	} {
		for i, candidate := range h.items {
			if match(candidate, item) {
				return i
			}
		}
	}
	return -1
}

// IndexesOf returns every position holding an item that matches item.
func (h *Header) IndexesOf(item *query.SelectItem) []int {
	var out []int
	for i, candidate := range h.items {
		if candidate == item || candidate.Matches(item) {
			out = append(out, i)
		}
	}
	return out
}

// IndexOfColumn returns the position of the first bare reference to c, or -1.
func (h *Header) IndexOfColumn(c *schema.Column) int {
	for i, item := range h.items {
		if item.Column == c && item.Function == "" {
			return i
		}
	}
	return -1
}

// Equal reports whether both headers list equivalent items in the same order.
func (h *Header) Equal(o *Header) bool {
	if h == o {
		return true
	}
	if h == nil || o == nil || len(h.items) != len(o.items) {
		return false
	}
	for i := range h.items {
		if !h.items[i].EqualIgnoreAlias(o.items[i]) {
			return false
		}
	}
	return true
}

// Concat returns a header listing the items of h followed by those of others.
func (h *Header) Concat(others ...*Header) *Header {
	items := h.Items()
	for _, o := range others {
		items = append(items, o.items...)
	}
	return NewHeader(items...)
}

// Labels returns the display label of every item.
func (h *Header) Labels() []string {
	out := make([]string, len(h.items))
	for i, item := range h.items {
		out[i] = item.Label()
	}
	return out
}

func (h *Header) String() string {
	parts := make([]string, len(h.items))
	for i, item := range h.items {
		parts[i] = item.ToSQL(true)
	}
	return "Header[" + strings.Join(parts, ", ") + "]"
}
