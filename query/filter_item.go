package query

import (
	"reflect"
	"strings"
)

// FilterItem is a predicate of a WHERE, HAVING or ON clause. A leaf compares a
// select item with an operand (a literal, a list for IN, another select item or
// a parameter); a compound combines its children with AND or OR.
type FilterItem struct {
	Item     *SelectItem
	Operator OperatorType
	Operand  any

	Logic    LogicalOperator
	Children []*FilterItem

	// Expression is a free-form predicate the engine cannot evaluate itself.
	Expression string
}

// NewFilter creates a leaf filter. Comparing with nil is normalized to IS NULL
// and IS NOT NULL, and IN operands given as typed slices are widened to []any.
func NewFilter(item *SelectItem, op OperatorType, operand any) *FilterItem {
	if operand == nil {
		switch op {
		case OpEquals:
			op = OpIsNull
		case OpDifferentFrom:
			op = OpIsNotNull
		}
	}
	if op == OpIn || op == OpNotIn {
		operand = toList(operand)
	}
	if !op.HasOperand() {
		operand = nil
	}
	return &FilterItem{Item: item, Operator: op, Operand: operand}
}

// Or combines filters so that at least one must hold.
func Or(children ...*FilterItem) *FilterItem {
	return &FilterItem{Logic: LogicOr, Children: children}
}

// And combines filters so that all must hold.
func And(children ...*FilterItem) *FilterItem {
	return &FilterItem{Logic: LogicAnd, Children: children}
}

// NewExpressionFilter wraps a free-form predicate.
func NewExpressionFilter(expression string) *FilterItem {
	return &FilterItem{Expression: expression}
}

// IsCompound reports whether the item combines child filters.
func (f *FilterItem) IsCompound() bool { return f.Logic != "" }

// IsExpression reports whether the item is a free-form predicate.
func (f *FilterItem) IsExpression() bool { return f.Expression != "" && f.Item == nil && !f.IsCompound() }

// OperandItem returns the operand when it is another select item.
func (f *FilterItem) OperandItem() (*SelectItem, bool) {
	item, ok := f.Operand.(*SelectItem)
	return item, ok
}

// SelectItems returns every select item the filter references, children included.
func (f *FilterItem) SelectItems() []*SelectItem {
	var out []*SelectItem
	f.walk(func(leaf *FilterItem) {
		if leaf.Item != nil {
			out = append(out, leaf.Item)
		}
		if item, ok := leaf.OperandItem(); ok {
			out = append(out, item)
		}
	})
	return out
}

// Parameters returns every parameter placeholder in declaration order.
func (f *FilterItem) Parameters() []*Parameter {
	var out []*Parameter
	f.walk(func(leaf *FilterItem) {
		switch v := leaf.Operand.(type) {
		case *Parameter:
			out = append(out, v)
		case []any:
			for _, elem := range v {
				if p, ok := elem.(*Parameter); ok {
					out = append(out, p)
				}
			}
		}
	})
	return out
}

func (f *FilterItem) walk(visit func(leaf *FilterItem)) {
	if f.IsCompound() {
		for _, c := range f.Children {
			c.walk(visit)
		}
		return
	}
	visit(f)
}

// Clone returns a deep copy of the filter tree. Select items are shared.
func (f *FilterItem) Clone() *FilterItem {
	cp := *f
	if list, ok := f.Operand.([]any); ok {
		cp.Operand = append([]any(nil), list...)
	}
	if f.Children != nil {
		cp.Children = make([]*FilterItem, len(f.Children))
		for i, c := range f.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Map returns a copy of the filter tree with every leaf operand replaced by fn.
func (f *FilterItem) Map(fn func(operand any) any) *FilterItem {
	cp := f.Clone()
	cp.walkMut(func(leaf *FilterItem) {
		if list, ok := leaf.Operand.([]any); ok {
			for i := range list {
				list[i] = fn(list[i])
			}
			return
		}
		leaf.Operand = fn(leaf.Operand)
	})
	return cp
}

func (f *FilterItem) walkMut(visit func(leaf *FilterItem)) {
	if f.IsCompound() {
		for _, c := range f.Children {
			c.walkMut(visit)
		}
		return
	}
	visit(f)
}

// String renders the filter.
func (f *FilterItem) String() string { return f.ToSQL() }

// ToSQL renders the filter. Compound filters are wrapped in parentheses.
func (f *FilterItem) ToSQL() string {
	if f.IsCompound() {
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.ToSQL()
		}
		return "(" + strings.Join(parts, " "+string(f.Logic)+" ") + ")"
	}
	if f.Item == nil {
		return f.Expression
	}
	lhs := f.Item.ToSQL(false)
	if !f.Operator.HasOperand() {
		return lhs + " " + f.Operator.String()
	}
	return lhs + " " + f.Operator.String() + " " + FormatOperand(f.Operand)
}

func toList(operand any) any {
	switch v := operand.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case *Parameter, *SelectItem:
		return v
	}
	rv := reflect.ValueOf(operand)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{operand}
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{operand}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
