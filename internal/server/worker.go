package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/cwbudde/blocksim/internal/score"
	"github.com/cwbudde/blocksim/internal/store"
	"github.com/cwbudde/blocksim/internal/tile"
)

// progressInterval throttles progress events to two per second.
const progressInterval = 500 * time.Millisecond

// runJob builds the similarity map of a job in the background.
// If st is not nil the finished run is saved under the job ID.
func runJob(ctx context.Context, jm *JobManager, st store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	cfg := job.Config

	q, err := cfg.Quantizer()
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	img, err := imageio.Load(cfg.ImagePath)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to load image: %w", err))
		return err
	}

	size := cfg.GetBlockSize()
	tiling, err := tile.Tile(img.Rows(), img.Cols(), size, tile.KeepPartial)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.Blocks = tiling.Len()
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID,
		"image", cfg.ImagePath,
		"rows", img.Rows(),
		"cols", img.Cols(),
		"blocks", tiling.Len(),
	)

	var done atomic.Int64
	scorer := score.NewScorer(q, cfg.GetWorkers())
	scorer.SetObserver(func(int, tile.Block, float64) {
		done.Add(1)
	})

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, &done, progressDone)

	start := time.Now()
	m, err := scorer.BuildSimilarityMap(ctx, img, size, cfg.GetThreshold())
	close(progressDone)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
			return err
		}
		markJobFailed(jm, jobID, err)
		return err
	}

	summary := m.Summary()
	runID := ""
	if st != nil {
		run := store.NewRun(jobID, m, runConfig(cfg), elapsed)
		if err := st.SaveRun(run); err != nil {
			// The map is still served from memory.
			slog.Error("Failed to save run", "job_id", jobID, "error", err)
		} else {
			runID = run.RunID
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Done = len(m.Scores)
		j.Summary = &summary
		j.RunID = runID
		j.EndTime = &endTime
		j.image = img
		j.result = m
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"blocks", summary.Blocks,
		"mean", summary.Mean,
		"blocks_per_second", float64(summary.Blocks)/elapsed.Seconds(),
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Done:      summary.Blocks,
		Blocks:    summary.Blocks,
		Summary:   &summary,
		Timestamp: time.Now(),
	})
	return nil
}

// runConfig records the settings a job was built with.
func runConfig(cfg JobConfig) store.RunConfig {
	table, _ := cfg.Table()
	path := cfg.ImagePath
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	oc := cfg.Overlay()
	return store.RunConfig{
		ImagePath: path,
		BlockSize: cfg.GetBlockSize(),
		Threshold: cfg.GetThreshold(),
		Palette:   table[:],
		Strict:    cfg.GetStrictPalette(),
		Workers:   cfg.GetWorkers(),
		Colormap:  oc.Colormap,
		Alpha:     oc.Alpha,
	}
}

// monitorProgress periodically publishes the number of scored blocks
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done *atomic.Int64, stop chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := int(done.Load())
			var blocks int
			err := jm.UpdateJob(jobID, func(j *Job) {
				j.Done = n
				blocks = j.Blocks
			})
			if err != nil {
				return
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:     jobID,
				State:     StateRunning,
				Done:      n,
				Blocks:    blocks,
				Timestamp: time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jm.broadcaster.Broadcast(ProgressEvent{JobID: jobID, State: StateFailed, Error: err.Error(), Timestamp: endTime})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	jm.broadcaster.Broadcast(ProgressEvent{JobID: jobID, State: StateCancelled, Timestamp: endTime})
	slog.Info("Job cancelled", "job_id", jobID)
}
