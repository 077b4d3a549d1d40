package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/blocksim/internal/score"
	"github.com/google/uuid"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestRun creates a valid run for a 4x6 image at block size 2.
func createTestRun() *Run {
	scores := []float64{1, 0.5, 0.5, 1, 0.25, 0.75}
	return &Run{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Rows:      4,
		Cols:      6,
		Config: RunConfig{
			ImagePath: "testdata/texture.tif",
			BlockSize: 2,
			Threshold: 0.8,
			Palette:   []int{6, 32, 57, 83, 108, 134, 159, 185, 210, 236},
			Workers:   2,
			Colormap:  "coolwarm",
			Alpha:     0.5,
		},
		Summary:   score.Summary{Blocks: len(scores), Min: 0.25, Max: 1, Mean: 0.666},
		Scores:    scores,
		Elapsed:   1500 * time.Millisecond,
		Artifacts: map[string]string{"overlay": "out/overlay.tif"},
	}
}

func TestNewFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	run := createTestRun()

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", run.RunID, "run.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Run file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not exist after save")
	}
}

func TestSaveRun_Nil(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.SaveRun(nil); err == nil {
		t.Fatal("Expected error for nil run")
	}
}

func TestSaveRun_Invalid(t *testing.T) {
	store, _ := setupTestStore(t)
	run := createTestRun()
	run.Config.BlockSize = 0

	err := store.SaveRun(run)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)
	run := createTestRun()

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	run.Artifacts["report"] = "out/report.html"
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun(run.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Artifacts["report"] != "out/report.html" {
		t.Errorf("Expected overwritten artifacts, got %v", loaded.Artifacts)
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)
	original := createTestRun()
	if err := store.SaveRun(original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(original.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.Rows != original.Rows || loaded.Cols != original.Cols {
		t.Errorf("Dimensions mismatch: expected %dx%d, got %dx%d", original.Rows, original.Cols, loaded.Rows, loaded.Cols)
	}
	if len(loaded.Scores) != len(original.Scores) {
		t.Fatalf("Scores length mismatch: expected %d, got %d", len(original.Scores), len(loaded.Scores))
	}
	for i := range original.Scores {
		if loaded.Scores[i] != original.Scores[i] {
			t.Errorf("Score %d mismatch: expected %f, got %f", i, original.Scores[i], loaded.Scores[i])
		}
	}
	if loaded.Config.ImagePath != original.Config.ImagePath {
		t.Errorf("ImagePath mismatch: expected %s, got %s", original.Config.ImagePath, loaded.Config.ImagePath)
	}
	if loaded.Elapsed != original.Elapsed {
		t.Errorf("Elapsed mismatch: expected %v, got %v", original.Elapsed, loaded.Elapsed)
	}
	if !loaded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, loaded.Timestamp)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun(uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadRun_EmptyID(t *testing.T) {
	store, _ := setupTestStore(t)
	if _, err := store.LoadRun(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected 0 runs, got %d", len(infos))
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store, _ := setupTestStore(t)

	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		run := createTestRun()
		run.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		ids = append(ids, run.RunID)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}
	for i, info := range infos {
		if info.RunID != ids[2-i] {
			t.Errorf("Position %d: expected %s, got %s", i, ids[2-i], info.RunID)
		}
	}
}

func TestListRuns_SkipsInvalidDirectories(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun(createTestRun()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// Directory without run.json
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	// Corrupted run.json
	corrupt := filepath.Join(tempDir, "runs", "corrupt")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "run.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	// Stray file
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("Expected 1 valid run, got %d", len(infos))
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	run := createTestRun()
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	artifact := filepath.Join(store.RunDir(run.RunID), "overlay.tif")
	if err := os.WriteFile(artifact, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	if err := store.DeleteRun(run.RunID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "runs", run.RunID)); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.DeleteRun(uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunToInfo(t *testing.T) {
	run := createTestRun()
	info := run.ToInfo()

	if info.RunID != run.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", run.RunID, info.RunID)
	}
	if info.BlockSize != run.Config.BlockSize {
		t.Errorf("BlockSize mismatch: expected %d, got %d", run.Config.BlockSize, info.BlockSize)
	}
	if info.Blocks != len(run.Scores) {
		t.Errorf("Blocks mismatch: expected %d, got %d", len(run.Scores), info.Blocks)
	}
	if info.Mean != run.Summary.Mean {
		t.Errorf("Mean mismatch: expected %f, got %f", run.Summary.Mean, info.Mean)
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	done := make(chan bool, numRuns)

	for i := 0; i < numRuns; i++ {
		go func() {
			if err := store.SaveRun(createTestRun()); err != nil {
				t.Errorf("Concurrent save failed: %v", err)
			}
			done <- true
		}()
	}
	for i := 0; i < numRuns; i++ {
		<-done
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d runs, got %d", numRuns, len(infos))
	}
}

func TestOpen(t *testing.T) {
	for _, kind := range []string{"", "fs", "sqlite"} {
		s, err := Open(kind, t.TempDir())
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", kind, err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close(%q) failed: %v", kind, err)
		}
	}

	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Error("Expected error for unknown store kind")
	}
}
