package csvdb

import (
	"log/slog"
	"path/filepath"
)

// Op names a write operation.
type Op string

// Write operations reported to observers.
const (
	OpInsertOrUpdate Op = "INSERT_OR_UPDATE"
	OpInsertUnique   Op = "INSERT_UNIQUE"
	OpDelete         Op = "DELETE"
)

// Stage is the progress of a write operation.
type Stage int

// Stages of a write operation, in order.
const (
	StageBegin Stage = iota
	StageTemp
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageBegin:
		return "begin"
	case StageTemp:
		return "temp"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes one stage of a write operation.
type Event struct {
	Op    Op
	Stage Stage
	// Path is the table file.
	Path string
	Key  string
	// Temp is the temporary file, set from StageTemp on.
	Temp string
	// Changed reports whether the table file was replaced. Set on StageDone.
	Changed bool
	// Err is set on StageFailed.
	Err error
}

// Observer is notified of write operations. It runs synchronously on the
// writer's goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements [Observer].
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Table is a delimited file treated as an ordered list of records.
//
// A Table only remembers its path: every operation opens, scans and closes the
// file.
type Table struct {
	path      string
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for debug traces and failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(t *Table) {
		t.AddObserver(o)
	}
}

// NewTable returns a table stored at path. The file is created lazily by the
// first write.
func NewTable(path string, opts ...Option) (*Table, error) {
	if isBlank(path) {
		return nil, invalidArg("table path is blank")
	}
	t := &Table{
		path:   filepath.Clean(path),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Path returns the table file path.
func (t *Table) Path() string {
	return t.path
}

// AddObserver registers an observer for subsequent writes.
func (t *Table) AddObserver(o Observer) {
	if o != nil {
		t.observers = append(t.observers, o)
	}
}

func (t *Table) notify(e Event) {
	e.Path = t.path
	for _, o := range t.observers {
		o.Observe(e)
	}
}
