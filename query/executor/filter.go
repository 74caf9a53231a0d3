package executor

import (
	"io"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
)

// Filter lazily keeps the rows of ds for which every filter is True.
func Filter(ds dataset.DataSet, filters ...*query.FilterItem) dataset.DataSet {
	if len(filters) == 0 {
		return ds
	}
	return dataset.NewIterator(ds.Header(), func() (*dataset.Row, error) {
		for ds.Next() {
			row := ds.Row()
			ok, err := Matches(row, filters)
			if err != nil {
				return nil, err
			}
			if ok {
				return row, nil
			}
		}
		if err := ds.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}, ds.Close)
}

// Distinct lazily drops rows whose values equal an earlier row's. The first
// occurrence is kept.
func Distinct(ds dataset.DataSet) dataset.DataSet {
	seen := make(map[string]struct{})
	return dataset.NewIterator(ds.Header(), func() (*dataset.Row, error) {
		for ds.Next() {
			row := ds.Row()
			key := rowKey(row.Values())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			return row, nil
		}
		if err := ds.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}, ds.Close)
}

// Paginate skips firstRow-1 rows and yields at most maxRows rows. A negative
// maxRows means no limit.
func Paginate(ds dataset.DataSet, firstRow, maxRows int) dataset.DataSet {
	if firstRow <= 1 && maxRows < 0 {
		return ds
	}
	skip := max(firstRow-1, 0)
	emitted := 0
	return dataset.NewIterator(ds.Header(), func() (*dataset.Row, error) {
		if maxRows >= 0 && emitted >= maxRows {
			return nil, io.EOF
		}
		for ; skip > 0; skip-- {
			if !ds.Next() {
				return nil, eof(ds)
			}
		}
		if !ds.Next() {
			return nil, eof(ds)
		}
		emitted++
		return ds.Row(), nil
	}, ds.Close)
}

func eof(ds dataset.DataSet) error {
	if err := ds.Err(); err != nil {
		return err
	}
	return io.EOF
}
