// cmd_bench.go - Forward-Benchmark
// Hauptfunktionen: BenchHandler, parseBatchSizes
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/vision/benchmark"
)

// BenchHandler - Misst den Forward-Pass und schreibt die Reports
func BenchHandler(cmd *cobra.Command, args []string) error {
	r, err := resolveModel(cmd, args)
	if err != nil {
		return err
	}

	cfg := benchmark.DefaultConfig()
	cfg.Name = r.Source
	cfg.Threads = int(envconfig.NumThreads())
	cfg.Seed = int64(envconfig.Seed())
	cfg.Iterations, _ = cmd.Flags().GetInt("iterations")
	cfg.WarmupRuns, _ = cmd.Flags().GetInt("warmup")
	cfg.Decode, _ = cmd.Flags().GetBool("decode")

	batches, _ := cmd.Flags().GetString("batch")
	if cfg.BatchSizes, err = parseBatchSizes(batches); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := loadModel(r)
	if err != nil {
		return err
	}
	defer m.Backend().Close()

	results, err := benchmark.Run(cmd.Context(), m, cfg)
	if err != nil {
		return err
	}

	report := benchmark.NewReport(results, cfg)
	report.WriteConsole(cmd.OutOrStdout())

	if path, _ := cmd.Flags().GetString("json"); path != "" {
		if err := report.ExportJSON(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nJSON report written to %s\n", path)
	}

	if path, _ := cmd.Flags().GetString("markdown"); path != "" {
		if err := report.ExportMarkdown(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Markdown report written to %s\n", path)
	}

	return nil
}

// parseBatchSizes parst eine komma-separierte Liste von Batch-Groessen
func parseBatchSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: batch size %q", benchmark.ErrInvalidConfig, part)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

// newBenchCmd - Erstellt den bench Command
func newBenchCmd() *cobra.Command {
	defaults := benchmark.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bench [EMBED PATCH IMAGE DEPTH HEADDIM HEADS DROPOUT CLASSES CHANNELS]",
		Short: "Benchmark the forward pass",
		Example: `  vit bench --preset vit-tiny --batch 1,8 --json report.json
  vit bench --decode --markdown report.md`,
		Args: modelArgs,
		RunE: BenchHandler,
	}

	addModelFlags(cmd)
	cmd.Flags().Int("iterations", defaults.Iterations, "Timed iterations per batch size")
	cmd.Flags().Int("warmup", defaults.WarmupRuns, "Untimed warmup iterations per batch size")
	cmd.Flags().String("batch", "1,4,8", "Comma separated batch sizes")
	cmd.Flags().Bool("decode", false, "Include JPEG decoding and preprocessing")
	cmd.Flags().String("json", "", "Write a JSON report to this file")
	cmd.Flags().String("markdown", "", "Write a Markdown report to this file")
	return cmd
}
