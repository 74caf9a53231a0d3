package schema

import "strings"

// TableType distinguishes base tables from views.
type TableType string

const (
	TableTypeTable TableType = "TABLE"
	TableTypeView  TableType = "VIEW"
	TableTypeOther TableType = "OTHER"
)

// Table is an ordered collection of columns that belongs to a schema.
type Table struct {
	name    string
	typ     TableType
	remarks string
	columns []*Column

	schema *Schema
	index  int
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Type returns the table type.
func (t *Table) Type() TableType { return t.typ }

// Remarks returns the table remarks.
func (t *Table) Remarks() string { return t.remarks }

// Schema returns the physical schema the table belongs to.
func (t *Table) Schema() *Schema { return t.schema }

// Index returns the position of the table within its schema.
func (t *Table) Index() int { return t.index }

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// ColumnAt returns the column at the given position, or nil.
func (t *Table) ColumnAt(i int) *Column {
	if i < 0 || i >= len(t.columns) {
		return nil
	}
	return t.columns[i]
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Column resolves a column by name. An exact match wins; otherwise a single
// case-insensitive match is accepted. Duplicate exact names resolve to the
// first column, since duplicates are disambiguated positionally elsewhere.
func (t *Table) Column(name string) (*Column, error) {
	for _, c := range t.columns {
		if c.name == name {
			return c, nil
		}
	}
	var found *Column
	for _, c := range t.columns {
		if strings.EqualFold(c.name, name) {
			if found == nil {
				found = c
			} else if found.name != c.name {
				return nil, ambiguous("column", name)
			}
		}
	}
	if found == nil {
		return nil, notFound("column", t.name+"."+name)
	}
	return found, nil
}

// MustColumn is like Column but panics when the column does not exist.
func (t *Table) MustColumn(name string) *Column {
	c, err := t.Column(name)
	if err != nil {
		panic(err)
	}
	return c
}

// PrimaryKeys returns the primary key columns in declaration order.
func (t *Table) PrimaryKeys() []*Column {
	var keys []*Column
	for _, c := range t.columns {
		if c.primaryKey {
			keys = append(keys, c)
		}
	}
	return keys
}

// Relationships returns the relationships in which this table takes part.
func (t *Table) Relationships() []*Relationship {
	if t.schema == nil {
		return nil
	}
	var out []*Relationship
	for _, r := range t.schema.relationships {
		if r.PrimaryTable() == t || r.ForeignTable() == t {
			out = append(out, r)
		}
	}
	return out
}

// QualifiedLabel returns "schema.table", or just the table name when the schema
// is unnamed.
func (t *Table) QualifiedLabel() string {
	if t.schema == nil || t.schema.name == "" {
		return t.name
	}
	return t.schema.name + "." + t.name
}

func (t *Table) String() string {
	return "Table[name=" + t.name + ",type=" + string(t.typ) + "]"
}
