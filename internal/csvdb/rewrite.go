// Implements the scan-and-replace write path.

package csvdb

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// InsertOrUpdate writes rec into the table.
//
// Every row whose key equals key(rec) is replaced by the row merged with rec:
// fields of the row absent from rec keep their value. When no row matches, rec
// is appended. An empty table gets its header from rec first. Fields of rec
// not present in the header are not stored.
func (t *Table) InsertOrUpdate(rec Record, key KeyFunc) error {
	if err := checkWrite(rec, key); err != nil {
		return err
	}
	want := key(rec)
	_, err := t.rewrite(OpInsertOrUpdate, want, func(sc *bufio.Scanner, w *bufio.Writer) (bool, error) {
		header, err := t.copyHeader(sc, w, rec)
		if err != nil {
			return false, err
		}
		matched := false
		for sc.Scan() {
			line := sc.Text()
			if row := Decode(line, header); key(row) == want {
				line = Encode(row.Merge(rec), header)
				matched = true
			}
			if err := writeLine(w, line); err != nil {
				return false, err
			}
		}
		if err := sc.Err(); err != nil {
			return false, storageErr("read", t.path, err)
		}
		if !matched {
			if err := writeLine(w, Encode(rec, header)); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	return err
}

// InsertUnique appends rec, failing with ErrDuplicateKey when a row with the
// same key already exists. The table is left untouched on failure.
func (t *Table) InsertUnique(rec Record, key KeyFunc) error {
	if err := checkWrite(rec, key); err != nil {
		return err
	}
	want := key(rec)
	_, err := t.rewrite(OpInsertUnique, want, func(sc *bufio.Scanner, w *bufio.Writer) (bool, error) {
		header, err := t.copyHeader(sc, w, rec)
		if err != nil {
			return false, err
		}
		for sc.Scan() {
			line := sc.Text()
			if key(Decode(line, header)) == want {
				return false, fmt.Errorf("%w: %q in %s", ErrDuplicateKey, want, t.path)
			}
			if err := writeLine(w, line); err != nil {
				return false, err
			}
		}
		if err := sc.Err(); err != nil {
			return false, storageErr("read", t.path, err)
		}
		if err := writeLine(w, Encode(rec, header)); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}

// Delete removes every row whose key equals key and reports whether at least
// one row was removed. When nothing matches the file is not rewritten.
func (t *Table) Delete(key string, keyFn KeyFunc) (bool, error) {
	if isBlank(key) {
		return false, invalidArg("key is blank")
	}
	if keyFn == nil {
		return false, invalidArg("key selector is nil")
	}
	return t.rewrite(OpDelete, key, func(sc *bufio.Scanner, w *bufio.Writer) (bool, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return false, storageErr("read", t.path, err)
			}
			return false, nil
		}
		header := ParseHeader(sc.Text())
		if err := writeLine(w, sc.Text()); err != nil {
			return false, err
		}
		removed := false
		for sc.Scan() {
			line := sc.Text()
			if keyFn(Decode(line, header)) == key {
				removed = true
				continue
			}
			if err := writeLine(w, line); err != nil {
				return false, err
			}
		}
		if err := sc.Err(); err != nil {
			return false, storageErr("read", t.path, err)
		}
		return removed, nil
	})
}

func checkWrite(rec Record, key KeyFunc) error {
	if len(rec) == 0 {
		return invalidArg("record is empty")
	}
	if key == nil {
		return invalidArg("key selector is nil")
	}
	return nil
}

// copyHeader copies the table's header to w, or synthesizes it from rec when
// the table has none yet.
func (t *Table) copyHeader(sc *bufio.Scanner, w *bufio.Writer, rec Record) (Header, error) {
	var line string
	if sc.Scan() {
		line = sc.Text()
	} else if err := sc.Err(); err != nil {
		return nil, storageErr("read", t.path, err)
	}
	if isBlank(line) {
		line = HeaderOf(rec).String()
	}
	if err := writeLine(w, line); err != nil {
		return nil, err
	}
	return ParseHeader(line), nil
}

// rewrite runs one scan-and-replace pass over the table.
//
// fn reads the current content from sc and writes the new content to w. When
// fn returns false or an error, the temporary file is discarded and the table
// is left untouched; otherwise the temporary file replaces the table.
func (t *Table) rewrite(op Op, key string, fn func(sc *bufio.Scanner, w *bufio.Writer) (bool, error)) (changed bool, err error) {
	t.notify(Event{Op: op, Stage: StageBegin, Key: key})
	tmpPath := ""
	defer func() {
		if err != nil {
			t.logger.Warn("Table write failed", "op", op, "table", t.path, "key", key, "error", err)
			t.notify(Event{Op: op, Stage: StageFailed, Key: key, Temp: tmpPath, Err: err})
			return
		}
		t.notify(Event{Op: op, Stage: StageDone, Key: key, Temp: tmpPath, Changed: changed})
	}()

	if err := EnsureFile(t.path); err != nil {
		return false, err
	}
	src, err := os.Open(t.path)
	if err != nil {
		return false, storageErr("open", t.path, err)
	}
	srcClosed := false
	defer func() {
		if !srcClosed {
			_ = src.Close()
		}
	}()
	tmp, err := createTemp(t.path)
	if err != nil {
		return false, err
	}
	tmpPath = tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	t.logger.Debug("Rewriting table", "op", op, "table", t.path, "key", key, "temp", tmpPath)
	t.notify(Event{Op: op, Stage: StageTemp, Key: key, Temp: tmpPath})

	w := bufio.NewWriter(tmp)
	ok, err := fn(newScanner(src), w)
	if err != nil {
		var se *StorageError
		if errors.Is(err, ErrDuplicateKey) || errors.As(err, &se) {
			return false, err
		}
		return false, storageErr("write", tmpPath, err)
	}
	if !ok {
		return false, nil
	}
	if err := w.Flush(); err != nil {
		return false, storageErr("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return false, storageErr("sync", tmpPath, err)
	}
	if st, err := src.Stat(); err == nil {
		_ = tmp.Chmod(st.Mode().Perm())
	}
	if err := tmp.Close(); err != nil {
		return false, storageErr("close", tmpPath, err)
	}
	// Windows refuses to rename over an open file.
	srcClosed = true
	_ = src.Close()
	if err := replaceFile(tmpPath, t.path); err != nil {
		return false, err
	}
	renamed = true
	return true, nil
}
