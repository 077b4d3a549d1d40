package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/blocksim/internal/config"
	"github.com/cwbudde/blocksim/internal/grid"
	"github.com/cwbudde/blocksim/internal/quantize"
	"github.com/cwbudde/blocksim/internal/score"
	"github.com/cwbudde/blocksim/internal/store"
)

// useDataDir points the global config at dir for the duration of the test.
func useDataDir(t *testing.T, dir string) {
	t.Helper()
	original := cfg
	cfg = &config.Config{DataDir: &dir}
	t.Cleanup(func() { cfg = original })
}

func saveTestRun(t *testing.T, st store.Store, age time.Duration) *store.Run {
	t.Helper()
	s := score.NewScorer(quantize.Default(), 1)
	m, err := s.BuildSimilarityMap(context.Background(), grid.Filled(4, 4, 6), 2, 0.8)
	if err != nil {
		t.Fatalf("BuildSimilarityMap failed: %v", err)
	}
	run := store.NewRun("", m, store.RunConfig{ImagePath: "test.tif", BlockSize: 2, Threshold: 0.8}, time.Second)
	run.Timestamp = time.Now().Add(-age)
	if err := st.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	return run
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.RunID] = true
	}
	if !ids["run1"] || !ids["run4"] {
		t.Errorf("Expected run1 and run4 to be selected for deletion, got %v", ids)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.RunID] = true
	}
	if !ids["run1"] || !ids["run4"] {
		t.Errorf("Expected the oldest runs run1 and run4, got %v", ids)
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
		{RunID: "run5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// run1 and run4 match both rules and must only appear once.
	toDelete := selectRunsForDeletion(infos, 3, 7)
	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete, got %d", len(toDelete))
	}

	// Keeping 2 additionally drops run2.
	toDelete = selectRunsForDeletion(infos, 2, 7)
	if len(toDelete) != 3 {
		t.Errorf("Expected 3 runs to delete, got %d", len(toDelete))
	}
}

func TestSelectRunsForDeletion_NothingToDo(t *testing.T) {
	infos := []store.RunInfo{{RunID: "run1", Timestamp: time.Now()}}
	if got := selectRunsForDeletion(infos, 5, 7); len(got) != 0 {
		t.Errorf("Expected no runs to delete, got %d", len(got))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("Expected truncated ID, got %s", got)
	}
}

func TestRunsListCommand_NoRuns(t *testing.T) {
	useDataDir(t, t.TempDir())

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestRunsListCommand_WithRuns(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestRun(t, st, 0)
	saveTestRun(t, st, time.Hour)

	useDataDir(t, tmpDir)

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestRunsShowCommand(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	run := saveTestRun(t, st, 0)

	useDataDir(t, tmpDir)

	if err := runShowRun(nil, []string{run.RunID}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowRun(nil, []string{store.NewRunID()}); err == nil {
		t.Error("Expected error for unknown run")
	}
}

func TestRunsCleanCommand_NoFlags(t *testing.T) {
	useDataDir(t, t.TempDir())

	keepLast = 0
	olderThanDays = 0

	if err := runCleanRuns(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestRunsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	old := saveTestRun(t, st, 30*24*time.Hour)
	recent := saveTestRun(t, st, time.Hour)

	useDataDir(t, tmpDir)

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	defer func() {
		olderThanDays = 0
		forceClean = false
	}()

	if err := runCleanRuns(nil, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := st.LoadRun(old.RunID); err == nil {
		t.Error("Expected old run to be deleted")
	}
	if _, err := st.LoadRun(recent.RunID); err != nil {
		t.Errorf("Expected recent run to survive, got %v", err)
	}
}
