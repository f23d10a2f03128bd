package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/nostrd/pkg/blossom"
	"github.com/cuemby/nostrd/pkg/config"
	"github.com/cuemby/nostrd/pkg/log"
	"github.com/cuemby/nostrd/pkg/metrics"
	"github.com/cuemby/nostrd/pkg/relay"
	"github.com/cuemby/nostrd/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nostrd",
	Short: "nostrd - an embedded-storage nostr relay",
	Long: `nostrd serves the nostr NIP-01 WebSocket protocol and the Blossom
blob protocol over a single embedded append-only event log, with no
external database dependency.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"nostrd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.BindFlags(serveCmd.Flags())

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay, serving WebSocket, Blossom, and metrics traffic",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	metrics.SetVersion(Version)

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return fmt.Errorf("resolve configuration: %w", err)
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	metrics.RegisterComponent("storage", true, "ready")

	blobs, err := blossom.NewStore(cfg.BlossomDir)
	if err != nil {
		store.Close()
		return fmt.Errorf("open blossom store: %w", err)
	}

	srv := relay.NewServer(cfg, store, blobs)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	collector := metrics.NewCollector(store)
	collector.Start()

	time.Sleep(500 * time.Millisecond)
	metrics.RegisterComponent("relay", true, "ready")

	log.WithComponent("nostrd").Info().
		Str("listen-addr", cfg.ListenAddr).
		Str("metrics-addr", cfg.MetricsAddr).
		Str("data-dir", cfg.DataDir).
		Msg("nostrd is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		log.Errorf("server error: %v", err)
	}

	collector.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Errorf("relay shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("metrics server shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
