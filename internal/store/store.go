package store

import "fmt"

// Store defines the interface for run persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun persists a run record, overwriting any record with the same ID.
	SaveRun(run *Run) error

	// LoadRun retrieves the run with the given ID.
	// Returns ErrNotFound if no such run exists.
	LoadRun(runID string) (*Run, error)

	// ListRuns returns metadata for all stored runs, newest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run record and its artifacts.
	// Returns ErrNotFound if no such run exists.
	DeleteRun(runID string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// Open returns the store backend named by kind ("fs" or "sqlite") rooted
// at baseDir.
func Open(kind, baseDir string) (Store, error) {
	switch kind {
	case "", "fs":
		fs, err := NewFSStore(baseDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "sqlite":
		db, err := NewSQLiteStore(baseDir)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
