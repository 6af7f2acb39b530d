package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/natsel/config"
	"github.com/pthm-cable/natsel/sim"
	"github.com/pthm-cable/natsel/telemetry"
)

var (
	configPath   string
	seed         int64
	generations  int
	width        int
	height       int
	food         int
	organisms    int
	logStats     bool
	outputDir    string
	snapshotDir  string
	snapshotFile string
	metricsAddr  string

	disableSpeed     bool
	disableAwareness bool
	disableSize      bool
	disableTrail     bool

	rootCmd = &cobra.Command{
		Use:   "natsel",
		Short: "Grid natural-selection simulation",
		Long: `natsel evolves a population of organisms on a grid. Each generation they
forage for food, hunt smaller organisms and follow pheromone trails; survivors
replicate with mutated speed, awareness and size genes.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless",
		RunE:  runSimulation,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE:  printConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (empty = use embedded defaults)")
	rootCmd.PersistentFlags().IntVar(&width, "width", 0, "Grid width (0 = config value)")
	rootCmd.PersistentFlags().IntVar(&height, "height", 0, "Grid height (0 = config value)")
	rootCmd.PersistentFlags().IntVar(&food, "food", -1, "Food spawned per generation (-1 = config value)")
	rootCmd.PersistentFlags().IntVar(&organisms, "organisms", -1, "Initial population (-1 = config value)")
	rootCmd.PersistentFlags().BoolVar(&disableSpeed, "disable-speed", false, "Freeze the speed gene")
	rootCmd.PersistentFlags().BoolVar(&disableAwareness, "disable-awareness", false, "Freeze the awareness gene")
	rootCmd.PersistentFlags().BoolVar(&disableSize, "disable-size", false, "Freeze the size gene")
	rootCmd.PersistentFlags().BoolVar(&disableTrail, "disable-trail", false, "Start with no trail carriers")

	runCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 = time-based)")
	runCmd.Flags().IntVar(&generations, "generations", 100, "Generations to run (0 = until interrupted)")
	runCmd.Flags().BoolVar(&logStats, "log-stats", false, "Log generation stats via slog")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for CSV telemetry output (empty = disabled)")
	runCmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "Directory for bookmark snapshots (empty = disabled)")
	runCmd.Flags().StringVar(&snapshotFile, "snapshot-file", "", "zstd JSONL stream of per-tick snapshots (empty = disabled)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (empty = disabled)")

	rootCmd.AddCommand(runCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if width > 0 {
		cfg.World.Width = width
	}
	if height > 0 {
		cfg.World.Height = height
	}
	if food >= 0 {
		cfg.Population.FoodPerGeneration = food
	}
	if organisms >= 0 {
		cfg.Population.Initial = organisms
	}
	if disableSpeed {
		cfg.Mutation.SpeedRate = 0
	}
	if disableAwareness {
		cfg.Mutation.AwarenessRate = 0
	}
	if disableSize {
		cfg.Mutation.SizeRate = 0
	}
	if disableTrail {
		cfg.Population.InitialTrailFraction = 0
	}

	cfg.ComputeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runID := uuid.NewString()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("run_id", runID)
	slog.SetDefault(logger)

	var metrics *telemetry.Metrics
	if metricsAddr != "" {
		metrics = telemetry.NewMetrics()
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "addr", metricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("serving metrics", "addr", metricsAddr)
	}

	model, err := sim.New(sim.Options{
		Seed:         seed,
		Config:       cfg,
		LogStats:     logStats || cfg.Telemetry.LogStats,
		OutputDir:    outputDir,
		SnapshotDir:  snapshotDir,
		SnapshotFile: snapshotFile,
		RunID:        runID,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	defer model.Close()

	slog.Info("starting simulation",
		"seed", seed,
		"width", cfg.World.Width,
		"height", cfg.World.Height,
		"organisms", cfg.Population.Initial,
		"food", cfg.Population.FoodPerGeneration,
		"generations", generations,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = model.Run(ctx, generations)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("simulation complete",
		"generations", model.Generation(),
		"ticks", model.Tick(),
		"population", model.Population(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return model.Close()
}
