package query

// OperatorType is the comparison operator of a leaf filter item.
type OperatorType string

const (
	OpEquals             OperatorType = "="
	OpDifferentFrom      OperatorType = "<>"
	OpLessThan           OperatorType = "<"
	OpGreaterThan        OperatorType = ">"
	OpLessThanOrEqual    OperatorType = "<="
	OpGreaterThanOrEqual OperatorType = ">="
	OpLike               OperatorType = "LIKE"
	OpNotLike            OperatorType = "NOT LIKE"
	OpIn                 OperatorType = "IN"
	OpNotIn              OperatorType = "NOT IN"
	OpIsNull             OperatorType = "IS NULL"
	OpIsNotNull          OperatorType = "IS NOT NULL"
)

// String returns the SQL spelling of the operator.
func (o OperatorType) String() string { return string(o) }

// IsSpaceDelimited reports whether the operator is a keyword that needs spaces
// around it when rendered.
func (o OperatorType) IsSpaceDelimited() bool {
	switch o {
	case OpLike, OpNotLike, OpIn, OpNotIn, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// HasOperand reports whether the operator takes a right-hand operand.
func (o OperatorType) HasOperand() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// LogicalOperator combines the children of a compound filter item.
type LogicalOperator string

const (
	LogicAnd LogicalOperator = "AND"
	LogicOr  LogicalOperator = "OR"
)

// JoinType is the kind of an explicit join.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
)

// Direction is the sort direction of an order-by item.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)
