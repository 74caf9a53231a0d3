package query

import (
	"reflect"
	"strings"

	"github.com/satishbabariya/relq/schema"
)

// SelectItem is one projected or aggregated expression of a query. Exactly one
// of Column, Expression or SubQueryItem identifies the underlying value;
// Function optionally applies a scalar or aggregate function to it.
type SelectItem struct {
	Column         *schema.Column
	Function       FunctionType
	FunctionParams []any
	Expression     string
	SubQueryItem   *SelectItem
	Alias          string

	// From disambiguates the item when the same table appears more than once
	// in a query, and points at the sub-query FromItem for SubQueryItem.
	From *FromItem
}

// NewColumnItem selects a bare column.
func NewColumnItem(col *schema.Column) *SelectItem {
	return &SelectItem{Column: col}
}

// NewFunctionItem applies fn to a column.
func NewFunctionItem(fn FunctionType, col *schema.Column, params ...any) *SelectItem {
	return &SelectItem{Column: col, Function: fn, FunctionParams: params}
}

// NewExpressionItem selects a free-form expression, optionally wrapped in fn.
func NewExpressionItem(fn FunctionType, expression string) *SelectItem {
	return &SelectItem{Function: fn, Expression: expression}
}

// CountAll returns the COUNT(*) select item.
func CountAll() *SelectItem {
	return &SelectItem{Function: FunctionCount, Expression: "*"}
}

// NewSubQueryItem selects item from the sub-query behind from.
func NewSubQueryItem(from *FromItem, item *SelectItem) *SelectItem {
	return &SelectItem{SubQueryItem: item, From: from}
}

// As sets the alias. It mutates the receiver and is meant for query construction.
func (s *SelectItem) As(alias string) *SelectItem {
	s.Alias = alias
	return s
}

// Of binds the item to a specific from item (self-joins).
func (s *SelectItem) Of(from *FromItem) *SelectItem {
	s.From = from
	return s
}

// WithFunction returns a copy of the item with fn applied instead of the
// current function.
func (s *SelectItem) WithFunction(fn FunctionType, params ...any) *SelectItem {
	cp := s.Clone()
	cp.Function = fn
	cp.FunctionParams = params
	cp.Alias = ""
	return cp
}

// WithoutFunction returns a copy of the item with its function stripped.
func (s *SelectItem) WithoutFunction() *SelectItem {
	return s.WithFunction("")
}

// IsAggregate reports whether the item applies an aggregate function.
func (s *SelectItem) IsAggregate() bool { return s.Function.IsAggregate() }

// IsScalarFunction reports whether the item applies a scalar function.
func (s *SelectItem) IsScalarFunction() bool { return s.Function.IsScalar() }

// IsCountAll reports whether the item is COUNT(*).
func (s *SelectItem) IsCountAll() bool {
	return s.Function == FunctionCount && s.Column == nil && s.SubQueryItem == nil &&
		(s.Expression == "*" || s.Expression == "")
}

// IsBareColumn reports whether the item is a plain column reference.
func (s *SelectItem) IsBareColumn() bool {
	return s.Column != nil && s.Function == ""
}

// ExpectedType returns the column type values of this item are expected to have.
func (s *SelectItem) ExpectedType() schema.ColumnType {
	base := schema.TypeOther
	switch {
	case s.Column != nil:
		base = s.Column.Type()
	case s.SubQueryItem != nil:
		base = s.SubQueryItem.ExpectedType()
	}
	if s.Function != "" {
		return s.Function.ResultType(base)
	}
	return base
}

// Equal reports whether both items denote the same expression with the same alias.
func (s *SelectItem) Equal(o *SelectItem) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.Alias == o.Alias && s.sameSignature(o, true)
}

// EqualIgnoreAlias is Equal without comparing aliases.
func (s *SelectItem) EqualIgnoreAlias(o *SelectItem) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.sameSignature(o, true)
}

// Matches is the loosest equivalence: same column, function and parameters,
// ignoring the alias, and ignoring From unless both items carry one.
func (s *SelectItem) Matches(o *SelectItem) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.sameSignature(o, false)
}

func (s *SelectItem) sameSignature(o *SelectItem, strictFrom bool) bool {
	if s.Column != o.Column || s.Function != o.Function || s.Expression != o.Expression {
		return false
	}
	if len(s.FunctionParams) != len(o.FunctionParams) {
		return false
	}
	if len(s.FunctionParams) > 0 && !reflect.DeepEqual(s.FunctionParams, o.FunctionParams) {
		return false
	}
	if (s.SubQueryItem == nil) != (o.SubQueryItem == nil) {
		return false
	}
	if s.SubQueryItem != nil && !s.SubQueryItem.Matches(o.SubQueryItem) {
		return false
	}
	if s.From == o.From {
		return true
	}
	if strictFrom || s.SubQueryItem != nil {
		return false
	}
	return s.From == nil || o.From == nil
}

// Clone returns a shallow copy whose parameter slice is not shared.
func (s *SelectItem) Clone() *SelectItem {
	cp := *s
	if s.FunctionParams != nil {
		cp.FunctionParams = append([]any(nil), s.FunctionParams...)
	}
	return &cp
}

// Label is the name a super query or a result header uses for the item.
func (s *SelectItem) Label() string {
	if s.Alias != "" {
		return s.Alias
	}
	if s.Function == "" && s.Column != nil {
		return s.Column.Name()
	}
	return s.ToSQL(false)
}

// String renders the item with its alias.
func (s *SelectItem) String() string { return s.ToSQL(true) }

// ToSQL renders the item, optionally followed by "AS alias".
func (s *SelectItem) ToSQL(includeAlias bool) string {
	var sb strings.Builder
	inner := s.innerSQL()
	if s.Function != "" {
		sb.WriteString(string(s.Function))
		sb.WriteByte('(')
		sb.WriteString(inner)
		for _, p := range s.FunctionParams {
			sb.WriteByte(',')
			sb.WriteString(FormatOperand(p))
		}
		sb.WriteByte(')')
	} else {
		sb.WriteString(inner)
	}
	if includeAlias && s.Alias != "" {
		sb.WriteString(" AS ")
		sb.WriteString(s.Alias)
	}
	return sb.String()
}

func (s *SelectItem) innerSQL() string {
	switch {
	case s.Column != nil:
		prefix := ""
		if s.From != nil && s.From.Alias != "" {
			prefix = s.From.Alias
		} else if t := s.Column.Table(); t != nil {
			prefix = t.Name()
		}
		if prefix == "" {
			return s.Column.Name()
		}
		return prefix + "." + s.Column.Name()
	case s.SubQueryItem != nil:
		label := s.SubQueryItem.Label()
		if s.From != nil && s.From.Alias != "" {
			return s.From.Alias + "." + label
		}
		return label
	case s.Expression != "":
		return s.Expression
	case s.Function == FunctionCount:
		return "*"
	}
	return ""
}
