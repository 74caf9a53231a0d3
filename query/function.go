package query

import (
	"strings"

	"github.com/satishbabariya/relq/schema"
)

// FunctionType identifies an aggregate or scalar function applied in a select item.
type FunctionType string

const (
	// Aggregate functions.
	FunctionCount  FunctionType = "COUNT"
	FunctionSum    FunctionType = "SUM"
	FunctionAvg    FunctionType = "AVG"
	FunctionMin    FunctionType = "MIN"
	FunctionMax    FunctionType = "MAX"
	FunctionFirst  FunctionType = "FIRST"
	FunctionLast   FunctionType = "LAST"
	FunctionRandom FunctionType = "RANDOM"

	// Scalar functions.
	FunctionToString  FunctionType = "TO_STRING"
	FunctionToNumber  FunctionType = "TO_NUMBER"
	FunctionToDate    FunctionType = "TO_DATE"
	FunctionToBoolean FunctionType = "TO_BOOLEAN"
	FunctionMapValue  FunctionType = "MAP_VALUE"
)

var aggregateFunctions = map[FunctionType]bool{
	FunctionCount:  true,
	FunctionSum:    true,
	FunctionAvg:    true,
	FunctionMin:    true,
	FunctionMax:    true,
	FunctionFirst:  true,
	FunctionLast:   true,
	FunctionRandom: true,
}

var scalarFunctions = map[FunctionType]bool{
	FunctionToString:  true,
	FunctionToNumber:  true,
	FunctionToDate:    true,
	FunctionToBoolean: true,
	FunctionMapValue:  true,
}

// ParseFunctionType resolves a function name case-insensitively.
func ParseFunctionType(name string) (FunctionType, bool) {
	f := FunctionType(strings.ToUpper(strings.TrimSpace(name)))
	if aggregateFunctions[f] || scalarFunctions[f] {
		return f, true
	}
	return "", false
}

// IsAggregate reports whether the function aggregates many rows into one value.
func (f FunctionType) IsAggregate() bool { return aggregateFunctions[f] }

// IsScalar reports whether the function maps one value to one value.
func (f FunctionType) IsScalar() bool { return scalarFunctions[f] }

// ResultType returns the column type produced by applying f to values of type in.
func (f FunctionType) ResultType(in schema.ColumnType) schema.ColumnType {
	switch f {
	case FunctionCount:
		return schema.TypeBigInt
	case FunctionSum:
		if in.Kind() == schema.KindInt {
			return schema.TypeBigInt
		}
		return schema.TypeDouble
	case FunctionAvg, FunctionToNumber:
		return schema.TypeDouble
	case FunctionToString:
		return schema.TypeString
	case FunctionToDate:
		return schema.TypeTimestamp
	case FunctionToBoolean:
		return schema.TypeBoolean
	case FunctionMapValue:
		return schema.TypeOther
	default:
		return in
	}
}
