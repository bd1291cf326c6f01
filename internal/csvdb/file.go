// Resolves table files and replaces them atomically.

package csvdb

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/maruel/ksid"
)

// maxLineSize bounds a single line; longer lines fail the scan.
const maxLineSize = 16 << 20

// rename is replaced in tests to simulate filesystems without atomic rename.
var rename = os.Rename

// EnsureFile makes sure path names a regular file, creating parent
// directories and an empty file when missing. It is a no-op for an existing
// file.
func EnsureFile(path string) error {
	if isBlank(path) {
		return invalidArg("path is blank")
	}
	st, err := os.Stat(path)
	if err == nil {
		if st.IsDir() {
			return invalidArg("%s is a directory", path)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return storageErr("stat", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return storageErr("create directory for", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: table files are meant to be shared
	if err != nil {
		return storageErr("create", path, err)
	}
	if err := f.Close(); err != nil {
		return storageErr("create", path, err)
	}
	return nil
}

// AppendLine appends line and a newline to path, creating the file if needed.
func AppendLine(path, line string) error {
	if isBlank(path) {
		return invalidArg("path is blank")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: table files are meant to be shared
	if err != nil {
		return storageErr("open", path, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return storageErr("append to", path, err)
	}
	if err := f.Close(); err != nil {
		return storageErr("append to", path, err)
	}
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// createTemp creates a uniquely named temporary file next to path so the
// final rename never crosses filesystems.
func createTemp(path string) (*os.File, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+"."+ksid.NewID().String()+".*.tmp")
	if err != nil {
		return nil, storageErr("create temporary file for", path, err)
	}
	return f, nil
}

// replaceFile moves src over dst. When the filesystem refuses the rename
// across the two paths it falls back to overwriting dst in place, which is
// not atomic.
func replaceFile(src, dst string) error {
	err := rename(src, dst)
	if err == nil {
		syncDir(filepath.Dir(dst))
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return storageErr("replace", dst, err)
	}
	if err := overwrite(src, dst); err != nil {
		return err
	}
	_ = os.Remove(src)
	return nil
}

func overwrite(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is our own temporary file
	if err != nil {
		return storageErr("open", src, err)
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644) //nolint:gosec // G302: table files are meant to be shared
	if err != nil {
		return storageErr("overwrite", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return storageErr("overwrite", dst, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return storageErr("sync", dst, err)
	}
	if err := out.Close(); err != nil {
		return storageErr("overwrite", dst, err)
	}
	return nil
}

// syncDir flushes a directory entry after a rename. Errors are ignored: the
// rename already happened and not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dir is the table's own directory
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// writeAtomic replaces path with content through a temporary file.
func writeAtomic(path, content string) error {
	tmp, err := createTemp(path)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.WriteString(content); err != nil {
		return storageErr("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return storageErr("sync", tmpPath, err)
	}
	if st, err := os.Stat(path); err == nil {
		_ = tmp.Chmod(st.Mode().Perm())
	}
	if err := tmp.Close(); err != nil {
		return storageErr("close", tmpPath, err)
	}
	if err := replaceFile(tmpPath, path); err != nil {
		return err
	}
	renamed = true
	return nil
}
