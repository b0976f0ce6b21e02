package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/ledgerops/feetrack/pkg/config"
	"github.com/ledgerops/feetrack/pkg/datasource"
	"github.com/ledgerops/feetrack/pkg/feetrack"
	"github.com/ledgerops/feetrack/pkg/metrics"
	"github.com/ledgerops/feetrack/pkg/models"
	"github.com/ledgerops/feetrack/pkg/monitor"
	"github.com/ledgerops/feetrack/pkg/peers"
	"github.com/ledgerops/feetrack/pkg/storage"
)

var (
	// Serve flags
	listenAddr string
	verbose    bool

	// Simulate flags
	simSpikes int
	simDecays int
	simFee    uint64

	// History flags
	historyLimit int

	// Global config
	cfg *config.Config
)

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "feetrackd",
		Short: "Load-based fee tracking daemon for ledger nodes",
		Long:  `Tracks node, peer and cluster load levels and serves the fee multiplier used to price transaction admission.`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker with the utilization probe and HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides LISTEN_ADDR)")
	serveCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a load spike through the tracker and print the fee progression",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().IntVar(&simSpikes, "spikes", 8, "Number of raise requests to apply")
	simulateCmd.Flags().IntVar(&simDecays, "decays", 12, "Number of lower requests to apply afterwards")
	simulateCmd.Flags().Uint64Var(&simFee, "fee", 10, "Fee in fee units to price at each step")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent load samples and level transitions from storage",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of rows to show")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(log)
	return log
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := initLogger()

	tracker := feetrack.NewTracker()
	registry := peers.NewRegistry()

	source, err := datasource.NewPrometheusSource(cfg.PrometheusURL, cfg.UtilizationQuery)
	if err != nil {
		return fmt.Errorf("failed to initialize utilization source: %w", err)
	}

	var store storage.Store
	if cfg.StorageEnabled {
		pg, err := storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer pg.Close()
		store = pg
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !source.IsAvailable(ctx) {
		log.Warn("Prometheus not reachable, probe will retry", "url", cfg.PrometheusURL)
	}

	mon := monitor.New(cfg, tracker, source, registry, store, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		status, err := tracker.Status(cfg.BaseFee, cfg.ReferenceFeeUnits)
		if err != nil {
			metrics.RecordScaleError()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("GET /loaded", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{
			"local":   tracker.IsLoadedLocal(),
			"cluster": tracker.IsLoadedCluster(),
		})
	})
	mux.HandleFunc("POST /peer-report", func(w http.ResponseWriter, r *http.Request) {
		var rep models.PeerReport
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := registry.Report(rep); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		registry.Apply(tracker)
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("HTTP API listening", "addr", cfg.ListenAddr, "node_id", cfg.NodeID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "err", err)
			stop()
		}
	}()

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutting down")
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tracker := feetrack.NewTracker()

	printStep := func(step string) error {
		fee, err := tracker.ScaleFeeLoad(simFee, cfg.BaseFee, cfg.ReferenceFeeUnits, false)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s level=%-10d factor=%-10d fee=%d\n",
			step, tracker.LocalLevel(), tracker.LoadFactor(), fee)
		return nil
	}

	fmt.Printf("Simulating %d raises then %d lowers (base fee %d, %d fee units)\n\n",
		simSpikes, simDecays, cfg.BaseFee, cfg.ReferenceFeeUnits)
	if err := printStep("start"); err != nil {
		return err
	}

	for i := 0; i < simSpikes; i++ {
		tracker.RaiseLocalLevel()
		if err := printStep(fmt.Sprintf("raise %d", i+1)); err != nil {
			return err
		}
	}
	for i := 0; i < simDecays; i++ {
		tracker.LowerLocalLevel()
		if err := printStep(fmt.Sprintf("lower %d", i+1)); err != nil {
			return err
		}
	}

	status, err := tracker.Status(cfg.BaseFee, cfg.ReferenceFeeUnits)
	if err != nil {
		return err
	}
	fmt.Printf("\nFinal: base_fee=%d load_fee=%d loaded=%v\n",
		status.BaseFee, status.LoadFee, tracker.IsLoadedLocal())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.StorageEnabled {
		return fmt.Errorf("history requires STORAGE_ENABLED=true")
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	samples, err := store.RecentSamples(ctx, cfg.NodeID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	events, err := store.RecentEvents(ctx, cfg.NodeID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	fmt.Printf("Samples (%s):\n", cfg.NodeID)
	for _, s := range samples {
		fmt.Printf("  %s local=%d remote=%d cluster=%d factor=%d load_fee=%d\n",
			s.SampledAt.Format(time.RFC3339), s.Local, s.Remote, s.Cluster, s.LoadFactor, s.LoadFee)
	}

	fmt.Printf("\nLevel events (%s):\n", cfg.NodeID)
	for _, e := range events {
		fmt.Printf("  %s %-5s %d -> %d\n",
			e.OccurredAt.Format(time.RFC3339), e.Direction, e.FromLevel, e.ToLevel)
	}
	return nil
}
