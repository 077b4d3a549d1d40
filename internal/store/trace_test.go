package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cwbudde/blocksim/internal/grid"
	"github.com/cwbudde/blocksim/internal/quantize"
	"github.com/cwbudde/blocksim/internal/score"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-123"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Index: 0, Row: 0, Col: 0, Rows: 2, Cols: 2, Score: 1.0, Timestamp: time.Now()},
		{Index: 1, Row: 0, Col: 2, Rows: 2, Cols: 1, Score: 0.5, Timestamp: time.Now()},
		{Index: 2, Row: 2, Col: 0, Rows: 1, Cols: 2, Score: 0.25, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "runs", runID, TraceFile)
	if writer.Path() != tracePath {
		t.Errorf("Expected path %s, got %s", tracePath, writer.Path())
	}

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	readEntries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(readEntries) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(readEntries))
	}
	for i, entry := range readEntries {
		want := entries[i]
		if entry.Index != want.Index || entry.Row != want.Row || entry.Col != want.Col ||
			entry.Rows != want.Rows || entry.Cols != want.Cols {
			t.Errorf("Entry %d: expected block %+v, got %+v", i, want, entry)
		}
		if entry.Score != want.Score {
			t.Errorf("Entry %d: expected score %f, got %f", i, want.Score, entry.Score)
		}
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-append"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if err := writer.Write(TraceEntry{Index: 0, Score: 1.0}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	writer.Close()

	writer, err = NewTraceWriter(tmpDir, runID, true)
	if err != nil {
		t.Fatalf("Failed to create trace writer in append mode: %v", err)
	}
	if err := writer.Write(TraceEntry{Index: 1, Score: 0.8}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	writer.Close()

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Index != 0 || entries[1].Index != 1 {
		t.Errorf("Unexpected order: %d, %d", entries[0].Index, entries[1].Index)
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-flush"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Write(TraceEntry{Index: 0, Score: 1.0}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	data, err := os.ReadFile(writer.Path())
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Trace file is empty after flush")
	}
}

func TestTraceReader_ReadIteratively(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-iter"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := writer.Write(TraceEntry{Index: i, Score: 1.0 - float64(i)*0.1}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	writer.Close()

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		entry, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read entry: %v", err)
		}
		if entry.Index != count {
			t.Errorf("Entry %d: expected index %d, got %d", count, count, entry.Index)
		}
		count++
	}
	if count != 5 {
		t.Errorf("Expected to read 5 entries, got %d", count)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "nonexistent-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got: %v", err)
	}
}

func TestDeleteTrace(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-delete"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	writer.Write(TraceEntry{Index: 0, Score: 1.0})
	writer.Close()

	tracePath := writer.Path()
	if _, err := os.Stat(tracePath); os.IsNotExist(err) {
		t.Fatal("Trace file was not created")
	}
	if err := DeleteTrace(tmpDir, runID); err != nil {
		t.Fatalf("Failed to delete trace: %v", err)
	}
	if _, err := os.Stat(tracePath); !os.IsNotExist(err) {
		t.Error("Trace file still exists after delete")
	}
}

func TestDeleteTrace_NotFound(t *testing.T) {
	if err := DeleteTrace(t.TempDir(), "nonexistent-run"); err != nil {
		t.Errorf("DeleteTrace should not error for nonexistent file, got: %v", err)
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-concurrent"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			if err := writer.Write(TraceEntry{Index: idx, Score: float64(idx) / 10}); err != nil {
				t.Errorf("Concurrent write failed: %v", err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	writer.Close()

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("Expected 10 entries, got %d", len(entries))
	}
}

func TestTraceWriter_Observer(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-observer"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	s := score.NewScorer(quantize.Default(), 3)
	s.SetObserver(writer.Observer())
	m, err := s.BuildSimilarityMap(context.Background(), grid.Filled(5, 7, 57), 2, 0.9)
	if err != nil {
		t.Fatalf("BuildSimilarityMap failed: %v", err)
	}
	if err := writer.Err(); err != nil {
		t.Fatalf("Observer recorded error: %v", err)
	}
	writer.Close()

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != m.Tiling.Len() {
		t.Fatalf("Expected %d entries, got %d", m.Tiling.Len(), len(entries))
	}

	// Workers finish in any order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	for i, e := range entries {
		b := m.Tiling.Blocks[i]
		if e.Index != i || e.Row != b.Row || e.Col != b.Col || e.Rows != b.Rows || e.Cols != b.Cols {
			t.Errorf("Entry %d does not match block %v: %+v", i, b, e)
		}
		if e.Score != m.Scores[i] {
			t.Errorf("Entry %d: expected score %f, got %f", i, m.Scores[i], e.Score)
		}
	}
}
