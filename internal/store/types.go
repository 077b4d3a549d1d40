package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/blocksim/internal/score"
	"github.com/google/uuid"
)

// RunConfig holds the parameters a similarity map was built with.
// It is a copy of the command-line settings so the store does not depend
// on the config package.
type RunConfig struct {
	ImagePath string  `json:"imagePath"`
	BlockSize int     `json:"blockSize"`
	Threshold float64 `json:"threshold"`
	Palette   []int   `json:"palette"`
	Strict    bool    `json:"strict,omitempty"`
	Workers   int     `json:"workers"`
	Colormap  string  `json:"colormap"`
	Alpha     float64 `json:"alpha"`
}

// Run is the persisted record of one similarity-map build.
//
// Scores holds one value per block of the keep-partial tiling, so the
// full map can be rebuilt with score.FromScores without re-running the
// quadratic block comparison.
type Run struct {
	// RunID is a random UUID assigned when the run is created
	RunID string `json:"runId"`

	// Timestamp records when the run finished
	Timestamp time.Time `json:"timestamp"`

	// Rows and Cols are the dimensions of the scored image
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	Config  RunConfig     `json:"config"`
	Summary score.Summary `json:"summary"`
	Scores  []float64     `json:"scores"`

	// Elapsed is the wall time of the map build
	Elapsed time.Duration `json:"elapsed"`

	// Artifacts maps an artifact kind ("overlay", "map", "legend",
	// "report", "trace") to the path it was written to.
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// RunInfo contains run metadata without the per-block scores.
type RunInfo struct {
	RunID     string    `json:"runId"`
	Timestamp time.Time `json:"timestamp"`
	ImagePath string    `json:"imagePath"`
	BlockSize int       `json:"blockSize"`
	Threshold float64   `json:"threshold"`
	Blocks    int       `json:"blocks"`
	Mean      float64   `json:"mean"`
}

// NewRunID returns a fresh run ID. Callers that write artifacts while the
// map is still being built allocate the ID up front.
func NewRunID() string {
	return uuid.NewString()
}

// NewRun creates a run record for a finished similarity map. An empty
// runID is replaced by a fresh one.
func NewRun(runID string, m *score.SimilarityMap, config RunConfig, elapsed time.Duration) *Run {
	if runID == "" {
		runID = NewRunID()
	}
	return &Run{
		RunID:     runID,
		Timestamp: time.Now(),
		Rows:      m.Rows,
		Cols:      m.Cols,
		Config:    config,
		Summary:   m.Summary(),
		Scores:    append([]float64(nil), m.Scores...),
		Elapsed:   elapsed,
		Artifacts: map[string]string{},
	}
}

// ToInfo converts a full Run to RunInfo (metadata only).
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		RunID:     r.RunID,
		Timestamp: r.Timestamp,
		ImagePath: r.Config.ImagePath,
		BlockSize: r.Config.BlockSize,
		Threshold: r.Config.Threshold,
		Blocks:    r.Summary.Blocks,
		Mean:      r.Summary.Mean,
	}
}

// Map rebuilds the similarity map from the stored scores.
func (r *Run) Map() (*score.SimilarityMap, error) {
	return score.FromScores(r.Rows, r.Cols, r.Config.BlockSize, r.Scores, r.Config.Threshold)
}

// Validate checks if the run has valid data.
func (r *Run) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(r.RunID); err != nil {
		return &ValidationError{Field: "RunID", Reason: "must be a UUID"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Rows <= 0 || r.Cols <= 0 {
		return &ValidationError{Field: "Rows/Cols", Reason: "must be positive"}
	}
	if r.Config.ImagePath == "" {
		return &ValidationError{Field: "Config.ImagePath", Reason: "cannot be empty"}
	}
	if r.Config.BlockSize <= 0 {
		return &ValidationError{Field: "Config.BlockSize", Reason: "must be positive"}
	}
	if r.Config.Threshold < 0 || r.Config.Threshold > 1 {
		return &ValidationError{Field: "Config.Threshold", Reason: "must be in [0,1]"}
	}
	if len(r.Scores) == 0 {
		return &ValidationError{Field: "Scores", Reason: "cannot be empty"}
	}
	if len(r.Scores) != r.Summary.Blocks {
		return &ValidationError{
			Field:  "Scores",
			Reason: fmt.Sprintf("length mismatch: summary counts %d blocks, got %d scores", r.Summary.Blocks, len(r.Scores)),
		}
	}
	for i, s := range r.Scores {
		if s < 0 || s > 1 {
			return &ValidationError{Field: "Scores", Reason: fmt.Sprintf("block %d score %v outside [0,1]", i, s)}
		}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether the stored scores can stand in for a new
// build with the given config. Rendering settings (colormap, alpha,
// workers) may differ.
func (r *Run) IsCompatible(config RunConfig) error {
	if r.Config.ImagePath != config.ImagePath {
		return &CompatibilityError{Field: "ImagePath", Expected: r.Config.ImagePath, Actual: config.ImagePath}
	}
	if r.Config.BlockSize != config.BlockSize {
		return &CompatibilityError{
			Field:    "BlockSize",
			Expected: fmt.Sprintf("%d", r.Config.BlockSize),
			Actual:   fmt.Sprintf("%d", config.BlockSize),
		}
	}
	if r.Config.Threshold != config.Threshold {
		return &CompatibilityError{
			Field:    "Threshold",
			Expected: fmt.Sprintf("%g", r.Config.Threshold),
			Actual:   fmt.Sprintf("%g", config.Threshold),
		}
	}
	if fmt.Sprint(r.Config.Palette) != fmt.Sprint(config.Palette) {
		return &CompatibilityError{
			Field:    "Palette",
			Expected: fmt.Sprint(r.Config.Palette),
			Actual:   fmt.Sprint(config.Palette),
		}
	}
	if r.Config.Strict != config.Strict {
		return &CompatibilityError{
			Field:    "Strict",
			Expected: fmt.Sprint(r.Config.Strict),
			Actual:   fmt.Sprint(config.Strict),
		}
	}
	return nil
}

// CompatibilityError represents a run compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
