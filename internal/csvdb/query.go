// Read-only scans over a table.

package csvdb

import (
	"errors"
	"io/fs"
	"iter"
	"os"
)

// All returns an iterator over the table's records in file order.
//
// A missing or empty table yields nothing. A read failure is yielded once as
// the error of the last pair. The file stays open until the loop ends.
func (t *Table) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, err := os.Open(t.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				yield(nil, storageErr("open", t.path, err))
			}
			return
		}
		defer func() {
			_ = f.Close()
		}()
		sc := newScanner(f)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				yield(nil, storageErr("read", t.path, err))
			}
			return
		}
		header := ParseHeader(sc.Text())
		for sc.Scan() {
			if !yield(Decode(sc.Text(), header), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, storageErr("read", t.path, err))
		}
	}
}

// GetFirst returns the first record matching pred.
func (t *Table) GetFirst(pred Predicate) (Record, bool, error) {
	if pred == nil {
		return nil, false, invalidArg("predicate is nil")
	}
	for row, err := range t.All() {
		if err != nil {
			return nil, false, err
		}
		if pred(row) {
			return row, true, nil
		}
	}
	return nil, false, nil
}

// GetByKey returns the first record whose key equals key.
func (t *Table) GetByKey(key string, keyFn KeyFunc) (Record, bool, error) {
	if isBlank(key) {
		return nil, false, invalidArg("key is blank")
	}
	if keyFn == nil {
		return nil, false, invalidArg("key selector is nil")
	}
	return t.GetFirst(func(r Record) bool {
		return keyFn(r) == key
	})
}

// GetRangeByPredicate skips the first skip records matching pred and returns
// up to take of the following matches, in file order. The scan stops as soon
// as take records are collected.
func (t *Table) GetRangeByPredicate(pred Predicate, skip, take int) ([]Record, error) {
	if pred == nil {
		return nil, invalidArg("predicate is nil")
	}
	if skip < 0 {
		return nil, invalidArg("skip must be non-negative, got %d", skip)
	}
	if take <= 0 {
		return nil, invalidArg("take must be positive, got %d", take)
	}
	out := make([]Record, 0, min(take, 64))
	matched := 0
	for row, err := range t.All() {
		if err != nil {
			return nil, err
		}
		if !pred(row) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		out = append(out, row)
		if len(out) == take {
			break
		}
	}
	return out, nil
}

// GetRange returns up to take records after skipping skip, in file order.
func (t *Table) GetRange(skip, take int) ([]Record, error) {
	return t.GetRangeByPredicate(func(Record) bool { return true }, skip, take)
}
