package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/cwbudde/blocksim/internal/score"
	"github.com/cwbudde/blocksim/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus mirrors the server's status response.
type jobStatus struct {
	ID              string           `json:"id"`
	State           server.JobState  `json:"state"`
	Config          server.JobConfig `json:"config"`
	Blocks          int              `json:"blocks"`
	Done            int              `json:"done"`
	RunID           string           `json:"runId"`
	Summary         *score.Summary   `json:"summary"`
	Elapsed         float64          `json:"elapsed"`
	BlocksPerSecond float64          `json:"blocksPerSecond"`
	Error           string           `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []server.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s\n", job.State)
		fmt.Printf("  Image: %s\n", filepath.Base(job.Config.ImagePath))
		fmt.Printf("  Blocks: %d/%d\n", job.Done, job.Blocks)
		if job.Summary != nil {
			fmt.Printf("  Mean score: %.4f\n", job.Summary.Mean)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	fmt.Println()

	cfg := status.Config
	fmt.Println("Configuration:")
	fmt.Printf("  Image: %s\n", cfg.ImagePath)
	fmt.Printf("  Block size: %d\n", cfg.GetBlockSize())
	fmt.Printf("  Threshold: %g\n", cfg.GetThreshold())
	fmt.Printf("  Colormap: %s\n", cfg.Overlay().Colormap)
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Blocks: %d/%d\n", status.Done, status.Blocks)
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.BlocksPerSecond > 0 {
		fmt.Printf("  Throughput: %.0f blocks/sec\n", status.BlocksPerSecond)
	}
	if sum := status.Summary; sum != nil {
		fmt.Printf("  Scores: min %.4f, mean %.4f, max %.4f\n", sum.Min, sum.Mean, sum.Max)
	}
	if status.RunID != "" {
		fmt.Printf("  Stored run: %s\n", status.RunID)
	}

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}

	return nil
}
