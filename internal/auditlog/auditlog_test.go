package auditlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/roomdb/internal/csvdb"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("creates file with header", func(t *testing.T) {
		path := filepath.Join(dir, "logs", "ops.csv")
		l, backup, err := Open(path, nil)
		if err != nil || backup != "" {
			t.Fatalf("Open = %q, %v", backup, err)
		}
		if lines := readLines(t, l.Path()); len(lines) != 1 || lines[0] != Header {
			t.Errorf("lines = %q", lines)
		}
	})

	t.Run("backs up a foreign file", func(t *testing.T) {
		path := filepath.Join(dir, "foreign.csv")
		if err := os.WriteFile(path, []byte("X,Y,Z\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, backup, err := Open(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if backup == "" || !strings.HasSuffix(backup, ".bak") {
			t.Fatalf("backup = %q", backup)
		}
		if b, _ := os.ReadFile(backup); string(b) != "X,Y,Z\n" {
			t.Errorf("backup content = %q", b)
		}
		if lines := readLines(t, path); len(lines) != 1 || lines[0] != Header {
			t.Errorf("lines = %q", lines)
		}
	})

	for _, tt := range []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"blank", "  "},
		{"trailing separator", filepath.Join(dir, "logs") + "/"},
		{"wrong extension", filepath.Join(dir, "ops.txt")},
		{"directory", filepath.Join(dir, "logs.csv")},
	} {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			if tt.name == "directory" {
				if err := os.Mkdir(tt.path, 0o755); err != nil {
					t.Fatal(err)
				}
			}
			if _, _, err := Open(tt.path, nil); !errors.Is(err, csvdb.ErrInvalidArgument) {
				t.Errorf("Open(%q) error = %v", tt.path, err)
			}
		})
	}
}

func TestLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.csv")
	l, _, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	l.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 5, time.UTC) }
	if err := l.Log("ana@fatec.sp.gov.br", "LOGIN", "line one\nline two"); err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, path)
	want := "2025-03-01T12:00:00.000000005Z;ana@fatec.sp.gov.br;LOGIN;line one line two"
	if len(lines) != 2 || lines[1] != want {
		t.Errorf("lines = %q, want second line %q", lines, want)
	}
}

func TestObserve(t *testing.T) {
	dir := t.TempDir()
	user := "ana@fatec.sp.gov.br"
	l, _, err := Open(filepath.Join(dir, "ops.csv"), func() string { return user })
	if err != nil {
		t.Fatal(err)
	}
	table, err := csvdb.NewTable(filepath.Join(dir, "salas.csv"), csvdb.WithObserver(l))
	if err != nil {
		t.Fatal(err)
	}
	key := csvdb.FieldKey("id")
	if err := table.InsertOrUpdate(csvdb.NewRecord("id", "1"), key); err != nil {
		t.Fatal(err)
	}
	user = ""
	if err := table.InsertUnique(csvdb.NewRecord("id", "1"), key); err == nil {
		t.Fatal("duplicate insert succeeded")
	}
	if _, err := table.Delete("1", key); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, l.Path())[1:]
	want := []struct{ user, action, detail string }{
		{"ana@fatec.sp.gov.br", "INSERT_OR_UPDATE", "Inserting or updating entry with key 1 into"},
		{"ana@fatec.sp.gov.br", "INSERT_OR_UPDATE", "Using temp file"},
		{"ana@fatec.sp.gov.br", "INSERT_OR_UPDATE", "Insert or update entry with key 1 completed successfully."},
		{"", "INSERT_UNIQUE", "Inserting entry with key 1 into"},
		{"", "INSERT_UNIQUE", "Using temp file"},
		{"", "INSERT_UNIQUE", "Error during insert entry with key 1:"},
		{"", "DELETE", "Deleting entry with key 1 from"},
		{"", "DELETE", "Using temp file"},
		{"", "DELETE", "Delete entry with key 1 completed successfully."},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d rows, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i, w := range want {
		cols := strings.SplitN(lines[i], ";", 4)
		if len(cols) != 4 {
			t.Fatalf("row %d = %q", i, lines[i])
		}
		if _, err := time.Parse(time.RFC3339Nano, cols[0]); err != nil {
			t.Errorf("row %d timestamp: %v", i, err)
		}
		if cols[1] != w.user || cols[2] != w.action || !strings.HasPrefix(cols[3], w.detail) {
			t.Errorf("row %d = %q, want %s;%s;%s...", i, lines[i], w.user, w.action, w.detail)
		}
	}
}
