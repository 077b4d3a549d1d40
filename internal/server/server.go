package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/blocksim/internal/config"
	"github.com/cwbudde/blocksim/internal/overlay"
	"github.com/cwbudde/blocksim/internal/report"
	"github.com/cwbudde/blocksim/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	addr       string
	server     *http.Server
	store      store.Store
	defaults   *config.Config

	// jobCtx bounds every background job; Shutdown cancels it.
	jobCtx    context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup
}

// NewServer creates a new HTTP server. Finished runs are saved to st when
// it is not nil. Settings a request leaves out are taken from defaults.
func NewServer(addr string, st store.Store, defaults *config.Config) *Server {
	if defaults == nil {
		defaults = config.Empty()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		addr:       addr,
		store:      st,
		defaults:   defaults,
		jobCtx:     ctx,
		cancelAll:  cancel,
	}
}

// Handler returns the routed and wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("/", s.handleIndex)

	// API
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/runs", s.handleListRuns)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs, waits for them and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.cancelAll()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// submit creates a job and runs it in the background.
func (s *Server) submit(cfg JobConfig) *Job {
	job := s.jobManager.CreateJob(cfg)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runJob(s.jobCtx, s.jobManager, s.store, job.ID)
	}()
	return job
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]
	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch sub {
	case "", "status":
		s.handleGetJobStatus(w, r, jobID)
	case "overlay.png":
		s.handleGetOverlay(w, r, jobID)
	case "map.png":
		s.handleGetMap(w, r, jobID)
	case "legend.png":
		s.handleGetLegend(w, r, jobID)
	case "report":
		s.handleGetReport(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req JobConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	cfg := JobConfig{ImagePath: req.ImagePath, Config: *s.defaults.Merge(&req.Config)}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.submit(cfg)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	elapsed := job.Elapsed()
	bps := float64(0)
	if elapsed.Seconds() > 0 {
		bps = float64(job.Done) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":              job.ID,
		"state":           job.State,
		"config":          job.Config,
		"blocks":          job.Blocks,
		"done":            job.Done,
		"runId":           job.RunID,
		"summary":         job.Summary,
		"elapsed":         elapsed.Seconds(),
		"blocksPerSecond": bps,
		"startTime":       job.StartTime,
		"endTime":         job.EndTime,
		"error":           job.Error,
	}
	writeJSON(w, http.StatusOK, response)
}

// completedJob returns the job if it has a result, writing an error
// response otherwise.
func (s *Server) completedJob(w http.ResponseWriter, jobID string) (*Job, bool) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	if job.result == nil {
		http.Error(w, "No results yet", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

// overlayConfig applies ?colormap= and ?alpha= over the job's settings.
func overlayConfig(r *http.Request, job *Job) (overlay.Config, error) {
	oc := job.Config.Overlay()
	q := r.URL.Query()
	if name := q.Get("colormap"); name != "" {
		oc.Colormap = name
	}
	if a := q.Get("alpha"); a != "" {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return oc, fmt.Errorf("invalid alpha %q", a)
		}
		oc.Alpha = v
	}
	return oc, oc.Validate()
}

// handleGetOverlay handles GET /api/v1/jobs/:id/overlay.png
func (s *Server) handleGetOverlay(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.completedJob(w, jobID)
	if !ok {
		return
	}
	oc, err := overlayConfig(r, job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := overlay.Render(job.image.Gray(), job.result, oc)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to render overlay: %v", err), http.StatusInternalServerError)
		return
	}
	writePNG(w, img)
}

// handleGetMap handles GET /api/v1/jobs/:id/map.png
func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.completedJob(w, jobID)
	if !ok {
		return
	}
	writePNG(w, job.result.Gray())
}

// handleGetLegend handles GET /api/v1/jobs/:id/legend.png
func (s *Server) handleGetLegend(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	oc, err := overlayConfig(r, job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	legend, err := overlay.Legend(oc, 256, 48)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to render legend: %v", err), http.StatusInternalServerError)
		return
	}
	writePNG(w, legend)
}

// handleGetReport handles GET /api/v1/jobs/:id/report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.completedJob(w, jobID)
	if !ok {
		return
	}
	oc, err := overlayConfig(r, job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := filepath.Base(job.Config.ImagePath)
	if err := report.WriteHeatmap(w, job.result, oc.Colormap, title); err != nil {
		slog.Error("Failed to write report", "job_id", jobID, "error", err)
	}
}

// handleListRuns handles GET /api/v1/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "No run store configured", http.StatusNotFound)
		return
	}

	infos, err := s.store.ListRuns()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON", "error", err)
	}
}

func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, img); err != nil {
		slog.Error("Failed to encode PNG", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
