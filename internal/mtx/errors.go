package mtx

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrMissingFile is returned when a matrix, label, or cluster file is absent
	ErrMissingFile = errors.New("missing file")
	// ErrMalformedRecord is returned when a line cannot be parsed or an index is out of range
	ErrMalformedRecord = errors.New("malformed record")
)

// RecordError locates a malformed line. It unwraps to ErrMalformedRecord.
type RecordError struct {
	Path   string
	Line   int
	Reason string
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *RecordError) Unwrap() error {
	return ErrMalformedRecord
}

func malformed(path string, line int, format string, args ...any) error {
	return &RecordError{Path: path, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// openFile opens path, mapping a not-exist failure to ErrMissingFile
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// requireFile checks that path exists and is a regular file
func requireFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingFile, path)
	}
	return nil
}
