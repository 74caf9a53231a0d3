// Package schema describes the shape of the data a backend exposes: schemas,
// tables, columns, relationships and column types.
package schema

import "strings"

// SuperType groups column types into broad categories.
type SuperType int

const (
	SuperTypeOther SuperType = iota
	SuperTypeLiteral
	SuperTypeNumber
	SuperTypeTime
	SuperTypeBoolean
	SuperTypeBinary
)

func (s SuperType) String() string {
	switch s {
	case SuperTypeLiteral:
		return "LITERAL"
	case SuperTypeNumber:
		return "NUMBER"
	case SuperTypeTime:
		return "TIME"
	case SuperTypeBoolean:
		return "BOOLEAN"
	case SuperTypeBinary:
		return "BINARY"
	default:
		return "OTHER"
	}
}

// Kind is the Go value kind a column type is materialized as.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindTime
	KindBool
	KindBytes
)

// ColumnType is the closed set of column types known to the engine.
type ColumnType int

const (
	TypeOther ColumnType = iota
	TypeChar
	TypeVarchar
	TypeLongVarchar
	TypeClob
	TypeNChar
	TypeNVarchar
	TypeString
	TypeTinyInt
	TypeSmallInt
	TypeInteger
	TypeBigInt
	TypeFloat
	TypeReal
	TypeDouble
	TypeNumeric
	TypeDecimal
	TypeNumber
	TypeDate
	TypeTime
	TypeTimestamp
	TypeBit
	TypeBoolean
	TypeBinary
	TypeVarbinary
	TypeLongVarbinary
	TypeBlob
	TypeUUID
	TypeMap
	TypeList
)

type typeInfo struct {
	name  string
	super SuperType
	kind  Kind
	large bool
}

var typeInfos = map[ColumnType]typeInfo{
	TypeOther:         {"OTHER", SuperTypeOther, KindAny, false},
	TypeChar:          {"CHAR", SuperTypeLiteral, KindString, false},
	TypeVarchar:       {"VARCHAR", SuperTypeLiteral, KindString, false},
	TypeLongVarchar:   {"LONGVARCHAR", SuperTypeLiteral, KindString, false},
	TypeClob:          {"CLOB", SuperTypeLiteral, KindString, true},
	TypeNChar:         {"NCHAR", SuperTypeLiteral, KindString, false},
	TypeNVarchar:      {"NVARCHAR", SuperTypeLiteral, KindString, false},
	TypeString:        {"STRING", SuperTypeLiteral, KindString, false},
	TypeTinyInt:       {"TINYINT", SuperTypeNumber, KindInt, false},
	TypeSmallInt:      {"SMALLINT", SuperTypeNumber, KindInt, false},
	TypeInteger:       {"INTEGER", SuperTypeNumber, KindInt, false},
	TypeBigInt:        {"BIGINT", SuperTypeNumber, KindInt, false},
	TypeFloat:         {"FLOAT", SuperTypeNumber, KindFloat, false},
	TypeReal:          {"REAL", SuperTypeNumber, KindFloat, false},
	TypeDouble:        {"DOUBLE", SuperTypeNumber, KindFloat, false},
	TypeNumeric:       {"NUMERIC", SuperTypeNumber, KindFloat, false},
	TypeDecimal:       {"DECIMAL", SuperTypeNumber, KindFloat, false},
	TypeNumber:        {"NUMBER", SuperTypeNumber, KindFloat, false},
	TypeDate:          {"DATE", SuperTypeTime, KindTime, false},
	TypeTime:          {"TIME", SuperTypeTime, KindTime, false},
	TypeTimestamp:     {"TIMESTAMP", SuperTypeTime, KindTime, false},
	TypeBit:           {"BIT", SuperTypeBoolean, KindBool, false},
	TypeBoolean:       {"BOOLEAN", SuperTypeBoolean, KindBool, false},
	TypeBinary:        {"BINARY", SuperTypeBinary, KindBytes, false},
	TypeVarbinary:     {"VARBINARY", SuperTypeBinary, KindBytes, false},
	TypeLongVarbinary: {"LONGVARBINARY", SuperTypeBinary, KindBytes, false},
	TypeBlob:          {"BLOB", SuperTypeBinary, KindBytes, true},
	TypeUUID:          {"UUID", SuperTypeLiteral, KindString, false},
	TypeMap:           {"MAP", SuperTypeOther, KindAny, false},
	TypeList:          {"LIST", SuperTypeOther, KindAny, false},
}

func (t ColumnType) info() typeInfo {
	if info, ok := typeInfos[t]; ok {
		return info
	}
	return typeInfos[TypeOther]
}

// String returns the canonical type name.
func (t ColumnType) String() string { return t.info().name }

// SuperType returns the category of the type.
func (t ColumnType) SuperType() SuperType { return t.info().super }

// Kind returns the Go value kind values of this type are expected to have.
func (t ColumnType) Kind() Kind { return t.info().kind }

// IsNumber reports whether values of this type are numeric.
func (t ColumnType) IsNumber() bool { return t.SuperType() == SuperTypeNumber }

// IsTimeBased reports whether values of this type are dates or times.
func (t ColumnType) IsTimeBased() bool { return t.SuperType() == SuperTypeTime }

// IsLiteral reports whether values of this type are character data.
func (t ColumnType) IsLiteral() bool { return t.SuperType() == SuperTypeLiteral }

// IsBoolean reports whether values of this type are booleans.
func (t ColumnType) IsBoolean() bool { return t.SuperType() == SuperTypeBoolean }

// IsBinary reports whether values of this type are raw bytes.
func (t ColumnType) IsBinary() bool { return t.SuperType() == SuperTypeBinary }

// IsLargeObject reports whether the type is a CLOB/BLOB style large object.
func (t ColumnType) IsLargeObject() bool { return t.info().large }

// nativeAliases maps backend specific type names onto column types.
var nativeAliases = map[string]ColumnType{
	"TEXT":              TypeVarchar,
	"CHARACTER":         TypeChar,
	"CHARACTER VARYING": TypeVarchar,
	"NATIVE_CHARACTER":  TypeNChar,
	"INT":               TypeInteger,
	"INT2":              TypeSmallInt,
	"INT4":              TypeInteger,
	"INT8":              TypeBigInt,
	"MEDIUMINT":         TypeInteger,
	"SERIAL":            TypeInteger,
	"BIGSERIAL":         TypeBigInt,
	"FLOAT4":            TypeReal,
	"FLOAT8":            TypeDouble,
	"DOUBLE PRECISION":  TypeDouble,
	"BOOL":              TypeBoolean,
	"DATETIME":          TypeTimestamp,
	"TIMESTAMPTZ":       TypeTimestamp,
	"BYTEA":             TypeBinary,
	"JSON":              TypeMap,
	"JSONB":             TypeMap,
	"ARRAY":             TypeList,
}

// ParseColumnType maps a native type name such as "varchar(255)" or "int8" to a
// ColumnType. Unknown names map to TypeOther.
func ParseColumnType(native string) ColumnType {
	name := strings.ToUpper(strings.TrimSpace(native))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.TrimSuffix(name, " UNSIGNED")
	if name == "" {
		return TypeOther
	}
	for t, info := range typeInfos {
		if info.name == name {
			return t
		}
	}
	if t, ok := nativeAliases[name]; ok {
		return t
	}
	switch {
	case strings.Contains(name, "INT"):
		return TypeInteger
	case strings.Contains(name, "CHAR"), strings.Contains(name, "TEXT"):
		return TypeVarchar
	case strings.Contains(name, "BLOB"):
		return TypeBlob
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"):
		return TypeDouble
	case strings.Contains(name, "TIMESTAMP"):
		return TypeTimestamp
	}
	return TypeOther
}
