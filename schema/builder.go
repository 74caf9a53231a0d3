package schema

import "fmt"

// Builder assembles a schema. It is the only mutable phase of the schema model:
// Build produces a frozen snapshot that is safe to share between queries.
type Builder struct {
	name          string
	quoteChar     string
	tables        []*TableBuilder
	relationships []relationshipDef
}

// TableBuilder assembles one table of a schema.
type TableBuilder struct {
	name    string
	typ     TableType
	remarks string
	columns []*Column
}

type relationshipDef struct {
	primaryTable string
	primary      []string
	foreignTable string
	foreign      []string
}

// NewBuilder creates a builder for a schema with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// QuoteChar sets the identifier quote character.
func (b *Builder) QuoteChar(q string) *Builder {
	b.quoteChar = q
	return b
}

// Table returns the builder of the named table, adding the table if the
// schema does not have it yet.
func (b *Builder) Table(name string) *TableBuilder {
	for _, tb := range b.tables {
		if tb.name == name {
			return tb
		}
	}
	tb := &TableBuilder{name: name, typ: TableTypeTable}
	b.tables = append(b.tables, tb)
	return tb
}

// RemoveTable drops every table with the given name, together with the
// relationships that reference it.
func (b *Builder) RemoveTable(name string) *Builder {
	kept := b.tables[:0]
	for _, tb := range b.tables {
		if tb.name != name {
			kept = append(kept, tb)
		}
	}
	b.tables = kept
	rels := b.relationships[:0]
	for _, r := range b.relationships {
		if r.primaryTable != name && r.foreignTable != name {
			rels = append(rels, r)
		}
	}
	b.relationships = rels
	return b
}

// Relationship declares that foreign columns of fkTable reference the primary
// columns of pkTable.
func (b *Builder) Relationship(pkTable string, pkColumns []string, fkTable string, fkColumns []string) *Builder {
	b.relationships = append(b.relationships, relationshipDef{
		primaryTable: pkTable,
		primary:      pkColumns,
		foreignTable: fkTable,
		foreign:      fkColumns,
	})
	return b
}

// Type sets the table type.
func (tb *TableBuilder) Type(t TableType) *TableBuilder {
	tb.typ = t
	return tb
}

// Remarks sets the table remarks.
func (tb *TableBuilder) Remarks(remarks string) *TableBuilder {
	tb.remarks = remarks
	return tb
}

// Column appends a column. Its column number is its position in the table.
func (tb *TableBuilder) Column(name string, typ ColumnType, opts ...ColumnOption) *TableBuilder {
	c := &Column{name: name, typ: typ}
	for _, opt := range opts {
		opt(c)
	}
	tb.columns = append(tb.columns, c)
	return tb
}

// Build freezes the builder into a Schema snapshot.
func (b *Builder) Build() (*Schema, error) {
	s := &Schema{name: b.name, quoteChar: b.quoteChar}
	for i, tb := range b.tables {
		t := &Table{name: tb.name, typ: tb.typ, remarks: tb.remarks, schema: s, index: i}
		for n, def := range tb.columns {
			c := def.clone()
			c.number = n
			c.table = t
			t.columns = append(t.columns, c)
		}
		s.tables = append(s.tables, t)
	}

	for _, def := range b.relationships {
		pk, err := lookupColumns(s, def.primaryTable, def.primary)
		if err != nil {
			return nil, fmt.Errorf("relationship %s -> %s: %w", def.foreignTable, def.primaryTable, err)
		}
		fk, err := lookupColumns(s, def.foreignTable, def.foreign)
		if err != nil {
			return nil, fmt.Errorf("relationship %s -> %s: %w", def.foreignTable, def.primaryTable, err)
		}
		rel, err := newRelationship(pk, fk)
		if err != nil {
			return nil, err
		}
		s.relationships = append(s.relationships, rel)
	}
	return s, nil
}

// MustBuild is like Build but panics on failure.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func lookupColumns(s *Schema, table string, columns []string) ([]*Column, error) {
	t, err := s.Table(table)
	if err != nil {
		return nil, err
	}
	out := make([]*Column, len(columns))
	for i, name := range columns {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
