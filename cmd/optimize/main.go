// Package main provides CMA-ES optimization for finding simulation parameters
// that keep a diverse population alive.
package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/natsel/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

var (
	configPath     string
	maxGenerations int
	seeds          int
	maxEvals       int
	population     int
	outputDir      string

	rootCmd = &cobra.Command{
		Use:          "optimize",
		Short:        "Search simulation parameters with CMA-ES",
		SilenceUsage: true,
		RunE:         runOptimize,
	}
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Base config YAML file (empty = use defaults)")
	rootCmd.Flags().IntVar(&maxGenerations, "max-generations", 200, "Maximum generations per run (cap)")
	rootCmd.Flags().IntVar(&seeds, "seeds", 3, "Number of seeds per evaluation")
	rootCmd.Flags().IntVar(&maxEvals, "max-evals", 200, "Maximum number of evaluations")
	rootCmd.Flags().IntVar(&population, "population", 0, "CMA-ES population size (0 = auto)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Output directory for results")
	_ = rootCmd.MarkFlagRequired("output")
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params := NewParamVector()

	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, maxGenerations, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // seeds already run in parallel inside Evaluate
	}

	popSize := population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	// Columns follow the parameter vector, so the header is built at runtime.
	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := logWriter.Write(header); err != nil {
		return fmt.Errorf("writing log header: %w", err)
	}

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			evalCount++

			// Log clamped values; these are the ones actually simulated
			clamped := params.Clamp(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			quality := evaluator.LastQuality()
			row := []string{strconv.Itoa(evalCount), fmt.Sprintf("%.6f", fitness), fmt.Sprintf("%.6f", quality)}
			for _, v := range clamped {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
			if err := logWriter.Write(row); err != nil {
				slog.Warn("failed to write log row", "eval", evalCount, "error", err)
			}
			logWriter.Flush()

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(maxEvals-evalCount) * avgPerEval

			// Fitness = -(generations × (1 + 0.2×quality))
			survived := -fitness / (1.0 + 0.2*quality)
			fmt.Printf("Eval %d/%d: survived=%.0f generations quality=%.2f (best=%.0f) | elapsed: %s, ETA: %s\n",
				evalCount, maxEvals, survived, quality, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, maxEvals)
	fmt.Printf("Seeds per evaluation: %d, generations per run: %d\n", seeds, maxGenerations)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Info("optimization ended", "reason", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		return fmt.Errorf("no evaluations completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.0f\n", bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	// Generation history of the best run
	if history := evaluator.BestHistory(); len(history) > 0 {
		historyPath := filepath.Join(outputDir, "best_generations.csv")
		f, err := os.Create(historyPath)
		if err != nil {
			slog.Error("failed to create history file", "error", err)
			return nil
		}
		defer f.Close()
		if err := gocsv.MarshalFile(&history, f); err != nil {
			slog.Error("failed to write history", "error", err)
		} else {
			fmt.Printf("Best run history saved to: %s\n", historyPath)
		}
	}
	return nil
}
