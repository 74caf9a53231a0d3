package executor

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
)

// ErrUnsupported is returned for constructs the operators cannot evaluate,
// such as free-form expressions.
var ErrUnsupported = errors.New("unsupported operation")

// Truth is the result of evaluating a predicate under SQL three-valued logic.
type Truth int8

const (
	False Truth = iota
	True
	Unknown
)

func (t Truth) String() string {
	switch t {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	}
	return "UNKNOWN"
}

func truth(b bool) Truth {
	if b {
		return True
	}
	return False
}

func (t Truth) not() Truth {
	switch t {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

// EvaluateFilter evaluates f against row. Comparisons involving null are
// Unknown, AND is False if any child is False, OR is True if any child is True.
func EvaluateFilter(f *query.FilterItem, row *dataset.Row) (Truth, error) {
	if f.IsCompound() {
		return evaluateCompound(f, row)
	}
	if f.Item == nil {
		return Unknown, fmt.Errorf("%w: expression filter %q", ErrUnsupported, f.Expression)
	}

	value, err := Resolve(row, f.Item)
	if err != nil {
		return Unknown, err
	}
	switch f.Operator {
	case query.OpIsNull:
		return truth(value == nil), nil
	case query.OpIsNotNull:
		return truth(value != nil), nil
	case query.OpIn, query.OpNotIn:
		t, err := evaluateIn(f, row, value)
		if f.Operator == query.OpNotIn {
			t = t.not()
		}
		return t, err
	}

	operand, err := resolveOperand(row, f.Operand)
	if err != nil {
		return Unknown, err
	}
	if value == nil || operand == nil {
		return Unknown, nil
	}

	switch f.Operator {
	case query.OpLike, query.OpNotLike:
		matched := Like(ToString(value), ToString(operand))
		if f.Operator == query.OpNotLike {
			matched = !matched
		}
		return truth(matched), nil
	}

	c, _ := Compare(value, operand)
	switch f.Operator {
	case query.OpEquals:
		return truth(c == 0), nil
	case query.OpDifferentFrom:
		return truth(c != 0), nil
	case query.OpLessThan:
		return truth(c < 0), nil
	case query.OpGreaterThan:
		return truth(c > 0), nil
	case query.OpLessThanOrEqual:
		return truth(c <= 0), nil
	case query.OpGreaterThanOrEqual:
		return truth(c >= 0), nil
	}
	return Unknown, fmt.Errorf("%w: operator %s", ErrUnsupported, f.Operator)
}

func evaluateCompound(f *query.FilterItem, row *dataset.Row) (Truth, error) {
	// AND starts from True and is decided by False; OR the other way round.
	result, decisive := True, False
	if f.Logic == query.LogicOr {
		result, decisive = False, True
	}
	for _, child := range f.Children {
		t, err := EvaluateFilter(child, row)
		if err != nil {
			return Unknown, err
		}
		if t == decisive {
			return decisive, nil
		}
		if t == Unknown {
			result = Unknown
		}
	}
	return result, nil
}

func evaluateIn(f *query.FilterItem, row *dataset.Row, value any) (Truth, error) {
	operand, err := resolveOperand(row, f.Operand)
	if err != nil {
		return Unknown, err
	}
	list, ok := operand.([]any)
	if !ok {
		list = []any{operand}
	}
	if value == nil {
		if len(list) == 0 {
			return False, nil
		}
		return Unknown, nil
	}
	result := False
	for _, candidate := range list {
		if candidate == nil {
			result = Unknown
			continue
		}
		if Equal(value, candidate) {
			return True, nil
		}
	}
	return result, nil
}

// Matches reports whether every filter evaluates to True.
func Matches(row *dataset.Row, filters []*query.FilterItem) (bool, error) {
	for _, f := range filters {
		t, err := EvaluateFilter(f, row)
		if err != nil {
			return false, err
		}
		if t != True {
			return false, nil
		}
	}
	return true, nil
}

func resolveOperand(row *dataset.Row, operand any) (any, error) {
	switch x := operand.(type) {
	case *query.SelectItem:
		return Resolve(row, x)
	case *query.Parameter:
		return nil, fmt.Errorf("%w: unbound parameter %s", ErrUnsupported, x)
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			v, err := resolveOperand(row, elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return operand, nil
}

// Resolve returns the value of item in row. A scalar function missing from
// the row's header is evaluated over its argument.
func Resolve(row *dataset.Row, item *query.SelectItem) (any, error) {
	if v, ok := row.Get(item); ok {
		return v, nil
	}
	if item.IsScalarFunction() {
		v, err := Resolve(row, item.WithoutFunction())
		if err != nil {
			return nil, err
		}
		return ApplyScalar(item.Function, v, item.FunctionParams)
	}
	return nil, fmt.Errorf("%s is not available in %s", item.ToSQL(false), row.Header())
}

// Like matches s against a SQL LIKE pattern where % matches any run of
// characters and _ matches exactly one. A backslash escapes the next
// pattern character.
func Like(s, pattern string) bool {
	var sIdx, pIdx int
	starP, starS := -1, 0
	for sIdx < len(s) {
		if pIdx < len(pattern) {
			pc, pw := utf8.DecodeRuneInString(pattern[pIdx:])
			sc, sw := utf8.DecodeRuneInString(s[sIdx:])
			switch {
			case pc == '%':
				starP, starS = pIdx, sIdx
				pIdx += pw
				continue
			case pc == '\\' && pIdx+pw < len(pattern):
				ec, ew := utf8.DecodeRuneInString(pattern[pIdx+pw:])
				if ec == sc {
					pIdx += pw + ew
					sIdx += sw
					continue
				}
			case pc == '_' || pc == sc:
				pIdx += pw
				sIdx += sw
				continue
			}
		}
		if starP < 0 {
			return false
		}
		_, sw := utf8.DecodeRuneInString(s[starS:])
		starS += sw
		sIdx = starS
		pIdx = starP + 1
	}
	for pIdx < len(pattern) && pattern[pIdx] == '%' {
		pIdx++
	}
	return pIdx == len(pattern)
}
