package csvdb

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

var byID = FieldKey("id")

// setupTable creates a table in the test's temp directory.
func setupTable(t *testing.T) (*Table, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "test.csv")
	table, err := NewTable(path)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) failed: %v", path, err)
	}
	return string(b)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// assertNoTempFiles fails if a rewrite left a temporary file behind.
func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestNewTable(t *testing.T) {
	for _, path := range []string{"", "   "} {
		if _, err := NewTable(path); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NewTable(%q) error = %v, want ErrInvalidArgument", path, err)
		}
	}
	table, path := setupTable(t)
	if table.Path() != path {
		t.Errorf("Path() = %q, want %q", table.Path(), path)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("NewTable created the file eagerly: %v", err)
	}
}

func TestInsertOrUpdate(t *testing.T) {
	t.Run("creates header and one row", func(t *testing.T) {
		table, path := setupTable(t)
		if err := table.InsertOrUpdate(NewRecord("id", "1", "name", "Ana"), byID); err != nil {
			t.Fatalf("InsertOrUpdate failed: %v", err)
		}
		if got, want := readFile(t, path), "id,name\n1,Ana\n"; got != want {
			t.Errorf("file = %q, want %q", got, want)
		}
		assertNoTempFiles(t, filepath.Dir(path))
	})

	t.Run("appends rows under the existing header", func(t *testing.T) {
		table, path := setupTable(t)
		for _, r := range []Record{
			NewRecord("id", "1", "name", "Ana"),
			NewRecord("name", "Bia", "id", "2"),
			NewRecord("id", "3"),
		} {
			if err := table.InsertOrUpdate(r, byID); err != nil {
				t.Fatalf("InsertOrUpdate failed: %v", err)
			}
		}
		if got, want := readFile(t, path), "id,name\n1,Ana\n2,Bia\n3,\n"; got != want {
			t.Errorf("file = %q, want %q", got, want)
		}
	})

	t.Run("update preserves untouched fields", func(t *testing.T) {
		table, path := setupTable(t)
		if err := table.InsertOrUpdate(NewRecord("a", "1", "b", "2", "c", "3"), FieldKey("a")); err != nil {
			t.Fatal(err)
		}
		if err := table.InsertOrUpdate(NewRecord("a", "1", "b", "9"), FieldKey("a")); err != nil {
			t.Fatal(err)
		}
		got, ok, err := table.GetByKey("1", FieldKey("a"))
		if err != nil || !ok {
			t.Fatalf("GetByKey = %v, %v, %v", got, ok, err)
		}
		if want := NewRecord("a", "1", "b", "9", "c", "3"); !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := readFile(t, path), "a,b,c\n1,9,3\n"; got != want {
			t.Errorf("file = %q, want %q", got, want)
		}
	})

	t.Run("leaves other lines untouched", func(t *testing.T) {
		table, path := setupTable(t)
		writeFile(t, path, "id,name\n1,Ana\n2\n3,Caio\n")
		if err := table.InsertOrUpdate(NewRecord("id", "3", "name", "Cris"), byID); err != nil {
			t.Fatal(err)
		}
		if got, want := readFile(t, path), "id,name\n1,Ana\n2\n3,Cris\n"; got != want {
			t.Errorf("file = %q, want %q", got, want)
		}
	})

	t.Run("preserves file mode", func(t *testing.T) {
		table, path := setupTable(t)
		writeFile(t, path, "id\n1\n")
		if err := os.Chmod(path, 0o600); err != nil {
			t.Fatal(err)
		}
		if err := table.InsertOrUpdate(NewRecord("id", "2"), byID); err != nil {
			t.Fatal(err)
		}
		st, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if st.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", st.Mode().Perm())
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		table, path := setupTable(t)
		if err := table.InsertOrUpdate(nil, byID); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("nil record: error = %v", err)
		}
		if err := table.InsertOrUpdate(Record{}, byID); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("empty record: error = %v", err)
		}
		if err := table.InsertOrUpdate(NewRecord("id", "1"), nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("nil selector: error = %v", err)
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("invalid call touched the file system: %v", err)
		}
	})
}

func TestInsertUnique(t *testing.T) {
	table, path := setupTable(t)
	if err := table.InsertUnique(NewRecord("id", "1", "name", "Ana"), byID); err != nil {
		t.Fatalf("InsertUnique failed: %v", err)
	}
	before := readFile(t, path)
	err := table.InsertUnique(NewRecord("id", "1", "name", "Other"), byID)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("error = %v, want ErrDuplicateKey", err)
	}
	if got := readFile(t, path); got != before {
		t.Errorf("file changed after duplicate insert: %q", got)
	}
	assertNoTempFiles(t, filepath.Dir(path))
	if err := table.InsertUnique(NewRecord("id", "2", "name", "Bia"), byID); err != nil {
		t.Fatalf("InsertUnique failed: %v", err)
	}
	if got, want := readFile(t, path), "id,name\n1,Ana\n2,Bia\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestDelete(t *testing.T) {
	t.Run("removes exactly one row", func(t *testing.T) {
		table, path := setupTable(t)
		for _, id := range []string{"1", "2", "3"} {
			if err := table.InsertOrUpdate(NewRecord("id", id, "v", "x"+id), byID); err != nil {
				t.Fatal(err)
			}
		}
		removed, err := table.Delete("2", byID)
		if err != nil || !removed {
			t.Fatalf("Delete(2) = %v, %v; want true, nil", removed, err)
		}
		after := readFile(t, path)
		if want := "id,v\n1,x1\n3,x3\n"; after != want {
			t.Errorf("file = %q, want %q", after, want)
		}

		removed, err = table.Delete("2", byID)
		if err != nil || removed {
			t.Fatalf("second Delete(2) = %v, %v; want false, nil", removed, err)
		}
		if got := readFile(t, path); got != after {
			t.Errorf("file changed by a no-op delete: %q", got)
		}
		assertNoTempFiles(t, filepath.Dir(path))
	})

	t.Run("empty table", func(t *testing.T) {
		table, path := setupTable(t)
		removed, err := table.Delete("1", byID)
		if err != nil || removed {
			t.Fatalf("Delete = %v, %v; want false, nil", removed, err)
		}
		if got := readFile(t, path); got != "" {
			t.Errorf("file = %q, want empty", got)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		table, _ := setupTable(t)
		for _, key := range []string{"", " "} {
			if _, err := table.Delete(key, byID); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Delete(%q) error = %v", key, err)
			}
		}
		if _, err := table.Delete("1", nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("nil selector: error = %v", err)
		}
	})
}

func TestRewriteFailure(t *testing.T) {
	table, path := setupTable(t)
	writeFile(t, path, "id,name\n1,Ana\n")
	failing := errors.New("rename refused")
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: failing}
	}
	t.Cleanup(func() { rename = os.Rename })

	err := table.InsertOrUpdate(NewRecord("id", "2", "name", "Bia"), byID)
	var se *StorageError
	if !errors.As(err, &se) || !errors.Is(err, failing) {
		t.Fatalf("error = %v, want StorageError wrapping the rename failure", err)
	}
	if got := readFile(t, path); got != "id,name\n1,Ana\n" {
		t.Errorf("original modified: %q", got)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestRewriteCrossDeviceFallback(t *testing.T) {
	table, path := setupTable(t)
	writeFile(t, path, "id,name\n1,Ana\n")
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { rename = os.Rename })

	if err := table.InsertOrUpdate(NewRecord("id", "2", "name", "Bia"), byID); err != nil {
		t.Fatalf("InsertOrUpdate failed: %v", err)
	}
	if got, want := readFile(t, path), "id,name\n1,Ana\n2,Bia\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestObserver(t *testing.T) {
	table, _ := setupTable(t)
	var events []Event
	table.AddObserver(ObserverFunc(func(e Event) {
		events = append(events, e)
	}))

	if err := table.InsertOrUpdate(NewRecord("id", "1"), byID); err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	stages := []Stage{StageBegin, StageTemp, StageDone}
	for i, e := range events {
		if e.Stage != stages[i] || e.Op != OpInsertOrUpdate || e.Key != "1" || e.Path != table.Path() {
			t.Errorf("event %d = %+v", i, e)
		}
	}
	if events[1].Temp == "" || !events[2].Changed {
		t.Errorf("temp/changed not reported: %+v", events)
	}

	events = nil
	if err := table.InsertUnique(NewRecord("id", "1"), byID); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("error = %v", err)
	}
	last := events[len(events)-1]
	if last.Stage != StageFailed || !errors.Is(last.Err, ErrDuplicateKey) {
		t.Errorf("last event = %+v, want failed duplicate", last)
	}

	events = nil
	if _, err := table.Delete("7", byID); err != nil {
		t.Fatal(err)
	}
	last = events[len(events)-1]
	if last.Stage != StageDone || last.Changed {
		t.Errorf("last event = %+v, want done without change", last)
	}
}

func TestRoundTrip(t *testing.T) {
	table, _ := setupTable(t)
	in := NewRecord("id", "5", "name", "Sala 1", "capacity", "40", "note", "")
	if err := table.InsertUnique(in, byID); err != nil {
		t.Fatal(err)
	}
	got, ok, err := table.GetByKey("5", byID)
	if err != nil || !ok {
		t.Fatalf("GetByKey = %v, %v", ok, err)
	}
	for _, f := range in {
		if got.Get(f.Name) != f.Value {
			t.Errorf("field %s = %q, want %q", f.Name, got.Get(f.Name), f.Value)
		}
	}
}

func TestSingleColumnBlankValue(t *testing.T) {
	table, path := setupTable(t)
	byNote := FieldKey("note")
	for _, v := range []string{"x", " ", "y"} {
		if err := table.InsertOrUpdate(NewRecord("note", v), byNote); err != nil {
			t.Fatalf("InsertOrUpdate(%q) failed: %v", v, err)
		}
	}
	if got, want := readFile(t, path), "note\nx\n \ny\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
	recs, err := table.GetRange(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 || recs[1].Get("note") != " " {
		t.Errorf("GetRange = %v, want 3 records with %q second", recs, " ")
	}
	removed, err := table.Delete("x", byNote)
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	if got, want := readFile(t, path), "note\n \ny\n"; got != want {
		t.Errorf("after delete file = %q, want %q", got, want)
	}
}
