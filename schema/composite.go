package schema

// Compose merges several physical schemas into one logical schema. Tables keep
// their identity: two tables with the same name from different parts remain
// distinct *Table values, and Table.Schema still returns the physical part.
func Compose(name string, parts ...*Schema) *Schema {
	s := &Schema{name: name}
	for _, p := range parts {
		if p == nil {
			continue
		}
		if s.quoteChar == "" {
			s.quoteChar = p.quoteChar
		}
		s.tables = append(s.tables, p.tables...)
		s.relationships = append(s.relationships, p.relationships...)
		s.parts = append(s.parts, p)
	}
	return s
}
