package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	reportserver "github.com/sawpanic/scorelab/internal/interfaces/http"
	"github.com/sawpanic/scorelab/internal/persistence"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs and metrics over HTTP",
		Long: `Starts a read-only JSON server with /health, /metrics, /runs,
/runs/{id}, /runs/{id}/events and /tunes. Runs come from Postgres when
PG_DSN is set and from the artifacts directory otherwise.`,
		RunE: runServe,
	}
	def := reportserver.DefaultServerConfig()
	cmd.Flags().String("host", def.Host, "HTTP server host")
	cmd.Flags().Int("port", def.Port, "HTTP server port")
	cmd.Flags().String("artifacts", "artifacts", "Directory holding backtest/ and tune/ artifacts")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	artifacts, _ := cmd.Flags().GetString("artifacts")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		store  reportserver.Store
		health persistence.RepositoryHealth
	)
	if a.db != nil {
		store = reportserver.NewRepositoryStore(a.db.Repository())
		health = a.db.Health()
	} else {
		store = reportserver.NewFileStore(filepath.Join(artifacts, "backtest"), filepath.Join(artifacts, "tune"))
	}

	cfg := reportserver.DefaultServerConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.Version = version
	server := reportserver.NewServer(cfg, store, health, a.metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Report server shutdown failed")
	}
	return nil
}
