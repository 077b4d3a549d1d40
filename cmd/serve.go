package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwbudde/blocksim/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr       string
	shutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Accepts similarity-map jobs over HTTP, builds them in the background and
serves overlays, raw maps, legends and heatmap reports of finished jobs.
Settings a job request leaves out are taken from --config and the scoring
flags. Finished runs are saved to the run store.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addScoringFlags(serveCmd)
	addOverlayFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for running jobs on shutdown")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	eff, err := resolve(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(eff)
	if err != nil {
		return err
	}
	defer st.Close()

	s := server.NewServer(serveAddr, st, eff)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	ctx := commandContext(cmd)
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
