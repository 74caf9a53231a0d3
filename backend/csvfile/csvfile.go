// Package csvfile is a read-only backend over a directory of CSV files. Each
// file is a table named after the file, its first record names the columns
// and column types are detected from the cells.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/internal/debug"
	"github.com/satishbabariya/relq/internal/watch"
	"github.com/satishbabariya/relq/schema"
)

const extension = ".csv"

// Option configures a Backend.
type Option func(*Backend)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(r rune) Option {
	return func(b *Backend) { b.delimiter = r }
}

// WithSampleSize limits type detection to the first n records of each file.
// n <= 0 reads every record.
func WithSampleSize(n int) Option {
	return func(b *Backend) { b.sampleSize = n }
}

// Backend reads tables from CSV files.
type Backend struct {
	engine.Unsupported

	fs         afero.Fs
	dir        string
	delimiter  rune
	sampleSize int

	mu      sync.RWMutex
	schema  *schema.Schema
	files   map[string]string
	watcher *watch.Watcher
}

var _ engine.Backend = (*Backend)(nil)

// New reads the schema of the CSV files in dir.
func New(fs afero.Fs, dir string, opts ...Option) (*Backend, error) {
	b := &Backend{fs: fs, dir: dir, delimiter: ',', sampleSize: 1000}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the file list and detects column types again.
func (b *Backend) Reload() error {
	entries, err := afero.ReadDir(b.fs, b.dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", b.dir, err)
	}

	name := filepath.Base(filepath.Clean(b.dir))
	builder := schema.NewBuilder(name)
	files := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), extension) {
			continue
		}
		path := filepath.Join(b.dir, entry.Name())
		table := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := b.describe(builder.Table(table), path); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files[table] = path
	}
	s, err := builder.Build()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.schema = s
	b.files = files
	b.mu.Unlock()
	debug.Debug("csv schema loaded", "dir", b.dir, "tables", len(files))
	return nil
}

func (b *Backend) describe(tb *schema.TableBuilder, path string) error {
	f, err := b.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := b.reader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("missing header record")
	}
	if err != nil {
		return err
	}

	detectors := make([]detector, len(header))
	for n := 0; b.sampleSize <= 0 || n < b.sampleSize; n++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		for i := range detectors {
			if i < len(record) {
				detectors[i].add(record[i])
			} else {
				detectors[i].add("")
			}
		}
	}

	for i, name := range header {
		typ, nullable, size := detectors[i].result()
		opts := []schema.ColumnOption{schema.Nullable(nullable)}
		if size > 0 {
			opts = append(opts, schema.Size(size))
		}
		tb.Column(strings.TrimSpace(name), typ, opts...)
	}
	return nil
}

func (b *Backend) reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = b.delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// Watch reloads the schema whenever a CSV file of the directory changes. It
// needs a file system backed by the operating system.
func (b *Backend) Watch() error {
	w, err := watch.New(b.dir, func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), extension)
	}, b.Reload, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	b.mu.Lock()
	if b.watcher != nil {
		b.mu.Unlock()
		return w.Stop()
	}
	b.watcher = w
	b.mu.Unlock()
	w.Start()
	return nil
}

// Close stops watching.
func (b *Backend) Close() error {
	b.mu.Lock()
	w := b.watcher
	b.watcher = nil
	b.mu.Unlock()
	if w != nil {
		return w.Stop()
	}
	return nil
}

// MainSchema returns the schema of the last load.
func (b *Backend) MainSchema(context.Context) (*schema.Schema, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schema, nil
}

// Capabilities reports that projection and pagination are exact.
func (b *Backend) Capabilities() engine.Capabilities {
	return engine.Capabilities{Projection: true, Pagination: true}
}

// Materialize streams the requested columns of the file behind table.
func (b *Backend) Materialize(ctx context.Context, table *schema.Table, columns []*schema.Column, firstRow, maxRows int) (dataset.DataSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	path, ok := b.files[table.Name()]
	b.mu.RUnlock()
	if !ok {
		return nil, &schema.NotFoundError{Kind: "table", Name: table.Name()}
	}

	f, err := b.fs.Open(path)
	if err != nil {
		return nil, err
	}
	r := b.reader(f)
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	positions, err := positionsOf(header, columns)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for skip := firstRow - 1; skip > 0; skip-- {
		if _, err := r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			f.Close()
			return nil, err
		}
	}

	h := dataset.HeaderOf(columns...)
	read := 0
	source := func() (*dataset.Row, error) {
		if maxRows >= 0 && read >= maxRows {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err != nil {
			return nil, err
		}
		read++
		values := make([]any, len(columns))
		for i, pos := range positions {
			if pos < len(record) {
				values[i] = parseCell(record[pos], columns[i].Type())
			}
		}
		return dataset.NewRow(h, values...), nil
	}
	return dataset.NewIterator(h, source, f.Close), nil
}

func positionsOf(header []string, columns []*schema.Column) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	positions := make([]int, len(columns))
	for i, c := range columns {
		pos, ok := index[c.Name()]
		if !ok {
			return nil, &schema.NotFoundError{Kind: "column", Name: c.Name()}
		}
		positions[i] = pos
	}
	return positions, nil
}
