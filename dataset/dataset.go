package dataset

import (
	"errors"
	"io"
	"sync"
)

// DataSet is a forward-only, single-pass cursor over rows. The usage pattern
// follows database/sql.Rows:
//
//	defer ds.Close()
//	for ds.Next() {
//		row := ds.Row()
//	}
//	return ds.Err()
//
// A DataSet is not safe for concurrent use. Close may be called at any point
// and more than once; it releases every upstream resource.
type DataSet interface {
	Header() *Header
	Next() bool
	Row() *Row
	Err() error
	Close() error
}

// InMemory is a DataSet over a buffered slice of rows.
type InMemory struct {
	header *Header
	rows   []*Row
	pos    int
	closed bool
}

// NewInMemory creates a DataSet over rows.
func NewInMemory(h *Header, rows []*Row) *InMemory {
	return &InMemory{header: h, rows: rows, pos: -1}
}

// FromValues creates an in-memory DataSet from raw value tuples.
func FromValues(h *Header, values [][]any) *InMemory {
	rows := make([]*Row, len(values))
	for i, v := range values {
		rows[i] = NewRow(h, v...)
	}
	return NewInMemory(h, rows)
}

// Empty returns a DataSet with no rows.
func Empty(h *Header) *InMemory { return NewInMemory(h, nil) }

func (m *InMemory) Header() *Header { return m.header }

func (m *InMemory) Next() bool {
	if m.closed || m.pos+1 >= len(m.rows) {
		m.pos = len(m.rows)
		return false
	}
	m.pos++
	return true
}

func (m *InMemory) Row() *Row {
	if m.pos < 0 || m.pos >= len(m.rows) {
		return nil
	}
	return m.rows[m.pos]
}

func (m *InMemory) Err() error { return nil }

func (m *InMemory) Close() error {
	m.closed = true
	return nil
}

// Rows returns the buffered rows.
func (m *InMemory) Rows() []*Row { return m.rows }

// Source produces the next row of an Iterator. It returns io.EOF when
// exhausted.
type Source func() (*Row, error)

// Iterator is a DataSet that lazily pulls rows from a Source.
type Iterator struct {
	header  *Header
	source  Source
	closer  func() error
	current *Row
	err     error
	done    bool

	closeOnce sync.Once
	closeErr  error
}

// NewIterator creates a lazily pulled DataSet. closer, if not nil, is called
// exactly once when the iterator is closed.
func NewIterator(h *Header, source Source, closer func() error) *Iterator {
	return &Iterator{header: h, source: source, closer: closer}
}

func (it *Iterator) Header() *Header { return it.header }

func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	row, err := it.source()
	if err != nil {
		it.done = true
		it.current = nil
		if !errors.Is(err, io.EOF) {
			it.err = err
		}
		return false
	}
	it.current = row
	return true
}

func (it *Iterator) Row() *Row { return it.current }

func (it *Iterator) Err() error { return it.err }

func (it *Iterator) Close() error {
	it.closeOnce.Do(func() {
		it.done = true
		it.current = nil
		if it.closer != nil {
			it.closeErr = it.closer()
		}
	})
	return it.closeErr
}

// Collect drains ds into a slice and closes it.
func Collect(ds DataSet) (rows []*Row, err error) {
	defer func() {
		if cerr := ds.Close(); err == nil {
			err = cerr
		}
	}()
	for ds.Next() {
		rows = append(rows, ds.Row())
	}
	return rows, ds.Err()
}

// CollectValues drains ds into value tuples and closes it.
func CollectValues(ds DataSet) ([][]any, error) {
	rows, err := Collect(ds)
	if err != nil {
		return nil, err
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out, nil
}

// Count drains ds, counting its rows, and closes it.
func Count(ds DataSet) (n int, err error) {
	defer func() {
		if cerr := ds.Close(); err == nil {
			err = cerr
		}
	}()
	for ds.Next() {
		n++
	}
	return n, ds.Err()
}

// Buffer drains ds into an in-memory DataSet and closes it.
func Buffer(ds DataSet) (*InMemory, error) {
	if m, ok := ds.(*InMemory); ok && m.pos < 0 && !m.closed {
		return m, nil
	}
	rows, err := Collect(ds)
	if err != nil {
		return nil, err
	}
	return NewInMemory(ds.Header(), rows), nil
}

// SliceSource returns a Source yielding rows in order.
func SliceSource(rows []*Row) Source {
	i := 0
	return func() (*Row, error) {
		if i >= len(rows) {
			return nil, io.EOF
		}
		i++
		return rows[i-1], nil
	}
}
