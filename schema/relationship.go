package schema

import (
	"fmt"
	"strings"
)

// Relationship pairs primary key columns with the foreign key columns that
// reference them. Both lists have the same length and correspond pairwise.
type Relationship struct {
	primary []*Column
	foreign []*Column
}

// PrimaryColumns returns the referenced (primary key) columns.
func (r *Relationship) PrimaryColumns() []*Column {
	out := make([]*Column, len(r.primary))
	copy(out, r.primary)
	return out
}

// ForeignColumns returns the referencing (foreign key) columns.
func (r *Relationship) ForeignColumns() []*Column {
	out := make([]*Column, len(r.foreign))
	copy(out, r.foreign)
	return out
}

// PrimaryTable returns the table holding the primary key columns.
func (r *Relationship) PrimaryTable() *Table { return r.primary[0].table }

// ForeignTable returns the table holding the foreign key columns.
func (r *Relationship) ForeignTable() *Table { return r.foreign[0].table }

// ContainsColumnPair reports whether pk and fk are a corresponding pair.
func (r *Relationship) ContainsColumnPair(pk, fk *Column) bool {
	for i := range r.primary {
		if r.primary[i] == pk && r.foreign[i] == fk {
			return true
		}
	}
	return false
}

func (r *Relationship) String() string {
	return fmt.Sprintf("Relationship[primaryTable=%s,primaryColumns=[%s],foreignTable=%s,foreignColumns=[%s]]",
		r.PrimaryTable().Name(), joinNames(r.primary), r.ForeignTable().Name(), joinNames(r.foreign))
}

func joinNames(cols []*Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return strings.Join(names, ",")
}

func newRelationship(primary, foreign []*Column) (*Relationship, error) {
	if len(primary) == 0 || len(primary) != len(foreign) {
		return nil, fmt.Errorf("%w: %d primary and %d foreign columns", ErrInvalidRelationship, len(primary), len(foreign))
	}
	for _, c := range primary[1:] {
		if c.table != primary[0].table {
			return nil, fmt.Errorf("%w: primary columns span several tables", ErrInvalidRelationship)
		}
	}
	for _, c := range foreign[1:] {
		if c.table != foreign[0].table {
			return nil, fmt.Errorf("%w: foreign columns span several tables", ErrInvalidRelationship)
		}
	}
	return &Relationship{primary: primary, foreign: foreign}, nil
}
