// Package auditlog appends a row per table operation to a semicolon
// separated operations log.
package auditlog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maruel/roomdb/internal/csvdb"
)

// Header is the first line of every operations log.
const Header = "data_hora;id_usuario;acao;detalhe"

// DefaultFile is the log file name used when none is configured.
const DefaultFile = "logs_operacoes.csv"

// Logger writes the operations log.
type Logger struct {
	path string
	// user returns the acting user's email for rows logged through Observe.
	user   func() string
	now    func() time.Time
	logger *slog.Logger
}

// Open validates path, creates the file if missing and makes sure it starts
// with Header. A file with another first line is backed up and restarted;
// the backup path is returned, or "" when none was made. user may be nil.
func Open(path string, user func() string) (*Logger, string, error) {
	if err := checkPath(path); err != nil {
		return nil, "", err
	}
	backup, err := csvdb.EnsureHeader(path, Header)
	if err != nil {
		return nil, backup, fmt.Errorf("failed to initialize operations log: %w", err)
	}
	if user == nil {
		user = func() string { return "" }
	}
	l := &Logger{path: path, user: user, now: time.Now, logger: slog.Default()}
	if backup != "" {
		l.logger.Warn("Operations log had an unexpected header", "path", path, "backup", backup)
	}
	return l, backup, nil
}

func checkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: operations log path is empty", csvdb.ErrInvalidArgument)
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return fmt.Errorf("%w: operations log path must point to a file", csvdb.ErrInvalidArgument)
	}
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return fmt.Errorf("%w: operations log must have a .csv extension", csvdb.ErrInvalidArgument)
	}
	st, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat operations log: %w", err)
	case st.IsDir():
		return fmt.Errorf("%w: operations log path is a directory", csvdb.ErrInvalidArgument)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("%w: operations log is not writable: %v", csvdb.ErrInvalidArgument, err)
	}
	return f.Close()
}

// Path returns the log file.
func (l *Logger) Path() string {
	return l.path
}

// Log appends one row.
func (l *Logger) Log(user, action, detail string) error {
	row := strings.Join([]string{
		l.now().UTC().Format(time.RFC3339Nano),
		clean(user),
		clean(action),
		clean(detail),
	}, ";")
	if err := csvdb.AppendLine(l.path, row); err != nil {
		return fmt.Errorf("failed to write operations log: %w", err)
	}
	return nil
}

// clean keeps a value on a single line.
func clean(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// Observe implements csvdb.Observer. Write failures are logged, not returned.
func (l *Logger) Observe(e csvdb.Event) {
	if err := l.Log(l.user(), string(e.Op), describe(e)); err != nil {
		l.logger.Warn("Failed to record operation", "op", e.Op, "table", e.Path, "error", err)
	}
}

func describe(e csvdb.Event) string {
	switch e.Stage {
	case csvdb.StageBegin:
		switch e.Op {
		case csvdb.OpDelete:
			return fmt.Sprintf("Deleting entry with key %s from %s", e.Key, e.Path)
		case csvdb.OpInsertUnique:
			return fmt.Sprintf("Inserting entry with key %s into %s", e.Key, e.Path)
		default:
			return fmt.Sprintf("Inserting or updating entry with key %s into %s", e.Key, e.Path)
		}
	case csvdb.StageTemp:
		return "Using temp file " + e.Temp
	case csvdb.StageDone:
		switch e.Op {
		case csvdb.OpDelete:
			if !e.Changed {
				return fmt.Sprintf("Delete entry with key %s found nothing to remove.", e.Key)
			}
			return fmt.Sprintf("Delete entry with key %s completed successfully.", e.Key)
		case csvdb.OpInsertUnique:
			return fmt.Sprintf("Insert entry with key %s completed successfully.", e.Key)
		default:
			return fmt.Sprintf("Insert or update entry with key %s completed successfully.", e.Key)
		}
	default:
		switch e.Op {
		case csvdb.OpDelete:
			return fmt.Sprintf("Error during delete entry with key %s: %v", e.Key, e.Err)
		case csvdb.OpInsertUnique:
			return fmt.Sprintf("Error during insert entry with key %s: %v", e.Key, e.Err)
		default:
			return fmt.Sprintf("Error during insert or update entry with key %s: %v", e.Key, e.Err)
		}
	}
}
