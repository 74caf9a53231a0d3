package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// writer accumulates SQL text and bind arguments. Column references are
// qualified with the label of their from item, or left bare when the
// statement reads a single table.
type writer struct {
	g      *Generator
	sb     strings.Builder
	args   []any
	single *schema.Table
	labels map[*query.FromItem]string
	leaves []*query.FromItem
}

func (g *Generator) writer(single *schema.Table) *writer {
	return &writer{g: g, single: single, labels: make(map[*query.FromItem]string)}
}

func (w *writer) write(s string) { w.sb.WriteString(s) }

func (w *writer) quote(name string) string { return w.g.dialect.QuoteIdentifier(name) }

func (w *writer) arg(v any) string {
	w.args = append(w.args, v)
	return w.g.dialect.Placeholder(len(w.args))
}

func (w *writer) query() *Query {
	return &Query{SQL: w.sb.String(), Args: w.args}
}

func (w *writer) columnList(columns []*schema.Column) {
	for i, c := range columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(w.quote(c.Name()))
	}
}

func (w *writer) limit(firstRow, maxRows int) {
	offset := firstRow - 1
	switch {
	case maxRows >= 0:
		w.write(" LIMIT ")
		w.write(strconv.Itoa(maxRows))
	case offset > 0 && w.g.dialect.UnboundedLimit != "":
		w.write(" LIMIT ")
		w.write(w.g.dialect.UnboundedLimit)
	}
	if offset > 0 {
		w.write(" OFFSET ")
		w.write(strconv.Itoa(offset))
	}
}

// where writes the conjunction of filters after keyword.
func (w *writer) where(keyword string, filters []*query.FilterItem) error {
	if len(filters) == 0 {
		return nil
	}
	w.write(keyword)
	for i, f := range filters {
		if i > 0 {
			w.write(" AND ")
		}
		if err := w.filter(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) filter(f *query.FilterItem) error {
	if f.IsCompound() {
		w.write("(")
		for i, c := range f.Children {
			if i > 0 {
				w.write(" " + string(f.Logic) + " ")
			}
			if err := w.filter(c); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	}
	if f.IsExpression() {
		w.write("(" + f.Expression + ")")
		return nil
	}

	switch f.Operator {
	case query.OpIn, query.OpNotIn:
		values, ok := f.Operand.([]any)
		if !ok {
			return fmt.Errorf("%w: %s operand %T", ErrUnsupported, f.Operator, f.Operand)
		}
		if len(values) == 0 {
			// x IN () is never true and x NOT IN () always is.
			if f.Operator == query.OpIn {
				w.write("1 = 0")
			} else {
				w.write("1 = 1")
			}
			return nil
		}
		if err := w.item(f.Item); err != nil {
			return err
		}
		w.write(" " + f.Operator.String() + " (")
		for i, v := range values {
			if i > 0 {
				w.write(", ")
			}
			if err := w.operand(v); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	}

	if err := w.item(f.Item); err != nil {
		return err
	}
	w.write(" " + f.Operator.String())
	if !f.Operator.HasOperand() {
		return nil
	}
	w.write(" ")
	return w.operand(f.Operand)
}

func (w *writer) operand(v any) error {
	switch x := v.(type) {
	case *query.SelectItem:
		return w.item(x)
	case *query.Parameter:
		return fmt.Errorf("%w: unbound parameter", ErrUnsupported)
	case *query.Query, []any:
		return fmt.Errorf("%w: operand %T", ErrUnsupported, v)
	}
	w.write(w.arg(v))
	return nil
}

// item writes a select item expression without its alias.
func (w *writer) item(s *query.SelectItem) error {
	if s.Function != "" {
		if s.IsCountAll() {
			w.write("COUNT(*)")
			return nil
		}
		switch s.Function {
		case query.FunctionCount, query.FunctionSum, query.FunctionAvg, query.FunctionMin, query.FunctionMax:
		default:
			return fmt.Errorf("%w: function %s", ErrUnsupported, s.Function)
		}
		if len(s.FunctionParams) > 0 {
			return fmt.Errorf("%w: parameters of %s", ErrUnsupported, s.Function)
		}
		// SUM over nothing but nulls is 0, not NULL.
		sum := s.Function == query.FunctionSum
		if sum {
			w.write("COALESCE(")
		}
		w.write(string(s.Function) + "(")
		if err := w.item(s.WithoutFunction()); err != nil {
			return err
		}
		w.write(")")
		if sum {
			w.write(", 0)")
		}
		return nil
	}

	switch {
	case s.Column != nil:
		return w.column(s)
	case s.SubQueryItem != nil:
		label, ok := w.labels[s.From]
		if !ok {
			return fmt.Errorf("%w: sub-query item outside its query", ErrUnsupported)
		}
		w.write(w.quote(label) + "." + w.quote(s.SubQueryItem.Label()))
		return nil
	case s.Expression != "":
		w.write(s.Expression)
		return nil
	}
	return fmt.Errorf("%w: empty select item", ErrUnsupported)
}

func (w *writer) column(s *query.SelectItem) error {
	c := s.Column
	if w.single != nil {
		if c.Table() != w.single {
			return fmt.Errorf("%w: column %s outside %s", ErrUnsupported, c.QualifiedLabel(), w.single.Name())
		}
		w.write(w.quote(c.Name()))
		return nil
	}

	leaf := s.From
	if leaf == nil {
		for _, l := range w.leaves {
			if l.IsTable() && l.Table == c.Table() {
				if leaf != nil {
					return fmt.Errorf("%w: column %s is ambiguous", ErrUnsupported, c.QualifiedLabel())
				}
				leaf = l
			}
		}
	}
	label, ok := w.labels[leaf]
	if !ok {
		return fmt.Errorf("%w: column %s outside the query", ErrUnsupported, c.QualifiedLabel())
	}
	w.write(w.quote(label) + "." + w.quote(c.Name()))
	return nil
}
