// Keeps files that require a fixed header in a known state.

package csvdb

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// now is replaced in tests.
var now = time.Now

// EnsureHeader makes path start with exactly header.
//
// An empty file gets the header written. A file whose first line differs is
// copied to a backup next to it and then replaced by the header alone; the
// returned string is the backup path, or "" when no backup was needed.
func EnsureHeader(path, header string) (string, error) {
	if isBlank(header) {
		return "", invalidArg("header is blank")
	}
	if err := EnsureFile(path); err != nil {
		return "", err
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", storageErr("stat", path, err)
	}
	if st.Size() == 0 {
		return "", AppendLine(path, header)
	}
	first, err := readFirstLine(path)
	if err != nil {
		return "", err
	}
	if first == header {
		return "", nil
	}
	backup, err := Backup(path)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, header+"\n"); err != nil {
		return backup, err
	}
	return backup, nil
}

// Backup copies path to "<path>.<unixMillis>.<uuid>.bak" in the same
// directory, preserving mode and modification time, and returns the copy's
// path.
func Backup(path string) (string, error) {
	if isBlank(path) {
		return "", invalidArg("path is blank")
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", storageErr("stat", path, err)
	}
	if st.IsDir() {
		return "", invalidArg("%s is a directory", path)
	}
	dst := fmt.Sprintf("%s.%d.%s.bak", path, now().UnixMilli(), uuid.NewString())
	in, err := os.Open(path) //nolint:gosec // G304: path is a table owned by the caller
	if err != nil {
		return "", storageErr("open", path, err)
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, st.Mode().Perm()) //nolint:gosec // G304: dst derives from path
	if err != nil {
		return "", storageErr("create backup of", path, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", storageErr("copy backup of", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", storageErr("copy backup of", path, err)
	}
	_ = os.Chtimes(dst, st.ModTime(), st.ModTime())
	return dst, nil
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is a table owned by the caller
	if err != nil {
		return "", storageErr("open", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	sc := newScanner(f)
	if sc.Scan() {
		return sc.Text(), nil
	}
	if err := sc.Err(); err != nil {
		return "", storageErr("read", path, err)
	}
	return "", nil
}
