package schema

import "fmt"

// Column is a column of a table. Columns are created by a Builder and are
// read-only afterwards.
type Column struct {
	name          string
	number        int
	typ           ColumnType
	size          *int
	decimalDigits *int
	nullable      *bool
	primaryKey    bool
	indexed       bool
	nativeType    string
	remarks       string

	table *Table
}

// ColumnOption configures a column while a table is being built.
type ColumnOption func(*Column)

// PrimaryKey marks the column as part of the primary key.
func PrimaryKey() ColumnOption {
	return func(c *Column) { c.primaryKey = true }
}

// Indexed marks the column as indexed in the backend.
func Indexed() ColumnOption {
	return func(c *Column) { c.indexed = true }
}

// Nullable records whether the column accepts null values.
func Nullable(nullable bool) ColumnOption {
	return func(c *Column) { c.nullable = &nullable }
}

// Size records the declared column size.
func Size(size int) ColumnOption {
	return func(c *Column) { c.size = &size }
}

// DecimalDigits records the declared number of decimal digits.
func DecimalDigits(digits int) ColumnOption {
	return func(c *Column) { c.decimalDigits = &digits }
}

// NativeType records the backend specific type name.
func NativeType(native string) ColumnOption {
	return func(c *Column) { c.nativeType = native }
}

// ColumnRemarks attaches free-text remarks to the column.
func ColumnRemarks(remarks string) ColumnOption {
	return func(c *Column) { c.remarks = remarks }
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Number returns the zero-based position of the column within its table.
func (c *Column) Number() int { return c.number }

// Type returns the declared column type.
func (c *Column) Type() ColumnType { return c.typ }

// Size returns the declared size, if any.
func (c *Column) Size() (int, bool) {
	if c.size == nil {
		return 0, false
	}
	return *c.size, true
}

// DecimalDigits returns the declared decimal digits, if any.
func (c *Column) DecimalDigits() (int, bool) {
	if c.decimalDigits == nil {
		return 0, false
	}
	return *c.decimalDigits, true
}

// Nullable returns whether the column is nullable and whether that is known.
func (c *Column) Nullable() (nullable bool, known bool) {
	if c.nullable == nil {
		return true, false
	}
	return *c.nullable, true
}

// IsPrimaryKey reports whether the column is part of the primary key.
func (c *Column) IsPrimaryKey() bool { return c.primaryKey }

// IsIndexed reports whether the backend indexes the column.
func (c *Column) IsIndexed() bool { return c.indexed }

// NativeType returns the backend specific type name.
func (c *Column) NativeType() string { return c.nativeType }

// Remarks returns the column remarks.
func (c *Column) Remarks() string { return c.remarks }

// Table returns the table the column belongs to.
func (c *Column) Table() *Table { return c.table }

// QualifiedLabel returns "schema.table.column", omitting empty parts.
func (c *Column) QualifiedLabel() string {
	if c.table == nil {
		return c.name
	}
	return c.table.QualifiedLabel() + "." + c.name
}

func (c *Column) String() string {
	return fmt.Sprintf("Column[name=%s,columnNumber=%d,type=%s,primaryKey=%t]", c.name, c.number, c.typ, c.primaryKey)
}

func (c *Column) clone() *Column {
	cp := *c
	cp.table = nil
	return &cp
}
