package schema

import "strings"

// Schema is an ordered collection of tables and the relationships between them.
// A Schema returned by Builder.Build or Compose is immutable; evolve it through
// ToBuilder and build a new snapshot.
type Schema struct {
	name          string
	quoteChar     string
	tables        []*Table
	relationships []*Relationship
	parts         []*Schema
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// QuoteChar returns the identifier quote character, if any.
func (s *Schema) QuoteChar() string { return s.quoteChar }

// IsComposite reports whether the schema merges several physical schemas.
func (s *Schema) IsComposite() bool { return len(s.parts) > 0 }

// Parts returns the physical schemas of a composite schema.
func (s *Schema) Parts() []*Schema {
	out := make([]*Schema, len(s.parts))
	copy(out, s.parts)
	return out
}

// Tables returns the tables in declaration order.
func (s *Schema) Tables() []*Table {
	out := make([]*Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// TableCount returns the number of tables.
func (s *Schema) TableCount() int { return len(s.tables) }

// TableAt returns the table at position i, or nil.
func (s *Schema) TableAt(i int) *Table {
	if i < 0 || i >= len(s.tables) {
		return nil
	}
	return s.tables[i]
}

// TableNames returns the table names in declaration order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.name
	}
	return names
}

// Relationships returns every relationship between tables of the schema.
func (s *Schema) Relationships() []*Relationship {
	out := make([]*Relationship, len(s.relationships))
	copy(out, s.relationships)
	return out
}

// TablesNamed returns every table with exactly the given name. Composite schemas
// may hold several.
func (s *Schema) TablesNamed(name string) []*Table {
	var out []*Table
	for _, t := range s.tables {
		if t.name == name {
			out = append(out, t)
		}
	}
	return out
}

// Table resolves a table by name, case-sensitively first and then
// case-insensitively. Ambiguous and missing names fail with a NotFoundError.
func (s *Schema) Table(name string) (*Table, error) {
	return resolveOne("table", name, s.tables, func(t *Table) string { return t.name })
}

// MustTable is like Table but panics on failure.
func (s *Schema) MustTable(name string) *Table {
	t, err := s.Table(name)
	if err != nil {
		panic(err)
	}
	return t
}

// ResolveTable resolves "table" or "schema.table".
func (s *Schema) ResolveTable(label string) (*Table, error) {
	if t, err := s.Table(label); err == nil {
		return t, nil
	}
	if rest, ok := s.stripSchemaPrefix(label); ok {
		return s.Table(rest)
	}
	return nil, notFound("table", label)
}

// ResolveColumn resolves a dotted label such as "schema.table.column" or
// "table.column" to a column.
func (s *Schema) ResolveColumn(label string) (*Column, error) {
	candidates := []string{label}
	if rest, ok := s.stripSchemaPrefix(label); ok {
		candidates = append(candidates, rest)
	}
	for _, fold := range []bool{false, true} {
		var found []*Column
		for _, candidate := range candidates {
			for _, t := range s.tables {
				prefix := t.name + "."
				if len(candidate) <= len(prefix) || !hasPrefix(candidate, prefix, fold) {
					continue
				}
				c, err := t.Column(candidate[len(prefix):])
				if err != nil {
					continue
				}
				if !containsColumn(found, c) {
					found = append(found, c)
				}
			}
			if len(found) > 0 {
				break
			}
		}
		switch {
		case len(found) == 1:
			return found[0], nil
		case len(found) > 1:
			return nil, ambiguous("column", label)
		}
	}
	return nil, notFound("column", label)
}

// ToBuilder returns a builder pre-populated with a copy of this schema. For a
// composite schema the tables of every part are copied into one physical schema.
func (s *Schema) ToBuilder() *Builder {
	b := NewBuilder(s.name).QuoteChar(s.quoteChar)
	for _, t := range s.tables {
		tb := b.Table(t.name).Type(t.typ).Remarks(t.remarks)
		for _, c := range t.columns {
			tb.columns = append(tb.columns, c.clone())
		}
	}
	for _, r := range s.relationships {
		b.relationships = append(b.relationships, relationshipDef{
			primaryTable: r.PrimaryTable().name,
			primary:      names(r.primary),
			foreignTable: r.ForeignTable().name,
			foreign:      names(r.foreign),
		})
	}
	return b
}

func (s *Schema) String() string {
	return "Schema[name=" + s.name + "]"
}

func (s *Schema) stripSchemaPrefix(label string) (string, bool) {
	if s.name == "" {
		return "", false
	}
	prefix := s.name + "."
	if hasPrefix(label, prefix, false) || hasPrefix(label, prefix, true) {
		return label[len(prefix):], true
	}
	return "", false
}

func resolveOne[T any](kind, name string, items []T, nameOf func(T) string) (T, error) {
	var zero T
	for _, fold := range []bool{false, true} {
		var found []T
		for _, item := range items {
			n := nameOf(item)
			if n == name || (fold && strings.EqualFold(n, name)) {
				found = append(found, item)
			}
		}
		switch {
		case len(found) == 1:
			return found[0], nil
		case len(found) > 1:
			return zero, ambiguous(kind, name)
		}
	}
	return zero, notFound(kind, name)
}

func hasPrefix(s, prefix string, fold bool) bool {
	if len(s) < len(prefix) {
		return false
	}
	if fold {
		return strings.EqualFold(s[:len(prefix)], prefix)
	}
	return s[:len(prefix)] == prefix
}

func containsColumn(cols []*Column, c *Column) bool {
	for _, existing := range cols {
		if existing == c {
			return true
		}
	}
	return false
}

func names(cols []*Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}
