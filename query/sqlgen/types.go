package sqlgen

import (
	"fmt"

	"github.com/satishbabariya/relq/schema"
)

func postgresType(c ColumnDef) string {
	switch c.Type {
	case schema.TypeChar, schema.TypeNChar:
		return sized("CHAR", c.Size, 1)
	case schema.TypeVarchar, schema.TypeNVarchar:
		if c.Size > 0 {
			return sized("VARCHAR", c.Size, 0)
		}
		return "TEXT"
	case schema.TypeTinyInt, schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDouble:
		return "DOUBLE PRECISION"
	case schema.TypeReal:
		return "REAL"
	case schema.TypeNumeric, schema.TypeDecimal, schema.TypeNumber:
		return "NUMERIC"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeTime:
		return "TIME"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	case schema.TypeBit, schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeBinary, schema.TypeVarbinary, schema.TypeLongVarbinary, schema.TypeBlob:
		return "BYTEA"
	case schema.TypeUUID:
		return "UUID"
	case schema.TypeMap, schema.TypeList:
		return "JSONB"
	}
	return "TEXT"
}

func mysqlType(c ColumnDef) string {
	switch c.Type {
	case schema.TypeChar, schema.TypeNChar:
		return sized("CHAR", c.Size, 1)
	case schema.TypeVarchar, schema.TypeNVarchar, schema.TypeString:
		return sized("VARCHAR", c.Size, 255)
	case schema.TypeLongVarchar, schema.TypeClob:
		return "LONGTEXT"
	case schema.TypeTinyInt:
		return "TINYINT"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeInteger:
		return "INT"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDouble:
		return "DOUBLE"
	case schema.TypeReal:
		return "FLOAT"
	case schema.TypeNumeric, schema.TypeDecimal, schema.TypeNumber:
		return "DECIMAL(38,10)"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeTime:
		return "TIME"
	case schema.TypeTimestamp:
		return "DATETIME"
	case schema.TypeBit, schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeBinary, schema.TypeVarbinary:
		return sized("VARBINARY", c.Size, 255)
	case schema.TypeLongVarbinary, schema.TypeBlob:
		return "LONGBLOB"
	case schema.TypeUUID:
		return "CHAR(36)"
	case schema.TypeMap, schema.TypeList:
		return "JSON"
	}
	return "TEXT"
}

// sqliteType keeps declared types that go-sqlite3 maps back to Go values:
// DATE, DATETIME and TIMESTAMP scan as time.Time and BOOLEAN as bool.
func sqliteType(c ColumnDef) string {
	switch {
	case c.Type.IsLiteral():
		if c.Size > 0 {
			return sized("VARCHAR", c.Size, 0)
		}
		return "TEXT"
	case c.Type.Kind() == schema.KindInt:
		return "INTEGER"
	case c.Type == schema.TypeNumeric || c.Type == schema.TypeDecimal || c.Type == schema.TypeNumber:
		return "NUMERIC"
	case c.Type.IsNumber():
		return "REAL"
	case c.Type == schema.TypeDate:
		return "DATE"
	case c.Type.IsTimeBased():
		return "TIMESTAMP"
	case c.Type.IsBoolean():
		return "BOOLEAN"
	case c.Type.IsBinary():
		return "BLOB"
	}
	return "TEXT"
}

func sized(name string, size, fallback int) string {
	if size <= 0 {
		size = fallback
	}
	if size <= 0 {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, size)
}
