package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the name of the SQLite database inside the base directory.
const DatabaseFile = "blocksim.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	created_ns INTEGER NOT NULL,
	image_path TEXT NOT NULL,
	block_size INTEGER NOT NULL,
	threshold  REAL NOT NULL,
	blocks     INTEGER NOT NULL,
	mean       REAL NOT NULL,
	record     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs (created_ns);
`

// SQLiteStore implements the Store interface on a single SQLite database
// at <baseDir>/blocksim.db. Run artifacts still live on disk under
// <baseDir>/runs/<runID>/ and are removed together with the row.
type SQLiteStore struct {
	db      *sql.DB
	baseDir string
}

// NewSQLiteStore opens (and if needed creates) the run database.
func NewSQLiteStore(baseDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	path := filepath.Join(baseDir, DatabaseFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Debug("Opened run database", "path", path)
	return &SQLiteStore{db: db, baseDir: baseDir}, nil
}

// SaveRun inserts or replaces a run.
func (s *SQLiteStore) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	record, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, created_ns, image_path, block_size, threshold, blocks, mean, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Timestamp.UnixNano(), run.Config.ImagePath, run.Config.BlockSize,
		run.Config.Threshold, run.Summary.Blocks, run.Summary.Mean, string(record))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	slog.Debug("Run saved", "runID", run.RunID, "store", "sqlite")
	return nil
}

// LoadRun retrieves the run with the given ID.
func (s *SQLiteStore) LoadRun(runID string) (*Run, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	var record string
	err := s.db.QueryRow(`SELECT record FROM runs WHERE run_id = ?`, runID).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	var run Run
	if err := json.Unmarshal([]byte(record), &run); err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}
	return &run, nil
}

// ListRuns returns metadata for all runs, newest first. Only the indexed
// columns are read.
func (s *SQLiteStore) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT run_id, created_ns, image_path, block_size, threshold, blocks, mean
		FROM runs ORDER BY created_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	infos := []RunInfo{}
	for rows.Next() {
		var info RunInfo
		var created int64
		if err := rows.Scan(&info.RunID, &created, &info.ImagePath, &info.BlockSize,
			&info.Threshold, &info.Blocks, &info.Mean); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.Timestamp = time.Unix(0, created)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	slog.Debug("Listed runs", "count", len(infos), "store", "sqlite")
	return infos, nil
}

// DeleteRun removes the row and the run's artifact directory.
func (s *SQLiteStore) DeleteRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &NotFoundError{RunID: runID}
	}

	if err := os.RemoveAll(RunDir(s.baseDir, runID)); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "runID", runID, "store", "sqlite")
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
