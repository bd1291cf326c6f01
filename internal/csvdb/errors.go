package csvdb

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any I/O when a call's arguments are unusable.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateKey is returned by InsertUnique when the key is already present.
	ErrDuplicateKey = errors.New("duplicate key")
)

// StorageError reports a failure at the OS boundary.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, path string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Path: path, Err: err}
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
