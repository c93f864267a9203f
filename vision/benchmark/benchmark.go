// MODUL: benchmark
// ZWECK: Benchmark fuer den Forward-Pass mit Latenz-, Durchsatz- und Speichermessung
// INPUT: model.Model, Config
// OUTPUT: Result pro Batch-Groesse
// NEBENEFFEKTE: CPU-Last waehrend des Benchmarks, Speicherallokation
// ABHAENGIGKEITEN: model, ml, vision, gonum/stat
// HINWEISE: Warmup-Laeufe sind wichtig fuer stabile Messungen

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/model"
	"github.com/ollama/vit/vision"
)

// ============================================================================
// Datenstrukturen
// ============================================================================

// Result enthaelt das Ergebnis fuer eine Batch-Groesse.
// Latenzen sind pro Bild angegeben.
type Result struct {
	Model      string        `json:"model"`
	Backend    string        `json:"backend"`
	Threads    int           `json:"threads"`
	ImageSize  string        `json:"image_size"`
	BatchSize  int           `json:"batch_size"`
	Iterations int           `json:"iterations"`
	Decode     bool          `json:"decode"`
	TotalTime  time.Duration `json:"total_time"`
	AvgLatency time.Duration `json:"avg_latency"`
	StdDev     time.Duration `json:"stddev"`
	MinLatency time.Duration `json:"min_latency"`
	MaxLatency time.Duration `json:"max_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	Throughput float64       `json:"throughput"`
	MemoryUsed uint64        `json:"memory_used"`
	Params     int           `json:"params"`
}

// Config definiert die Parameter eines Benchmark-Laufs
type Config struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations"`
	WarmupRuns int    `json:"warmup_runs"`
	BatchSizes []int  `json:"batch_sizes"`
	Threads    int    `json:"threads"`

	// Decode misst zusaetzlich JPEG-Dekodierung und Vorverarbeitung
	Decode bool  `json:"decode"`
	Seed   int64 `json:"seed"`
}

// ErrInvalidConfig wird fuer ungueltige Benchmark-Parameter zurueckgegeben
var ErrInvalidConfig = errors.New("benchmark: invalid config")

// DefaultConfig gibt eine Standard-Benchmark-Konfiguration zurueck
func DefaultConfig() Config {
	return Config{
		Name:       "vit",
		Iterations: 10,
		WarmupRuns: 2,
		BatchSizes: []int{1, 4, 8},
		Threads:    runtime.NumCPU(),
		Seed:       42,
	}
}

// Validate prueft die Konfiguration
func (c Config) Validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive", ErrInvalidConfig)
	}
	if c.WarmupRuns < 0 {
		return fmt.Errorf("%w: warmup must not be negative", ErrInvalidConfig)
	}
	if len(c.BatchSizes) == 0 {
		return fmt.Errorf("%w: no batch sizes", ErrInvalidConfig)
	}
	for _, b := range c.BatchSizes {
		if b < 1 {
			return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, b)
		}
	}
	return nil
}

// ============================================================================
// Haupt-Benchmark-Funktionen
// ============================================================================

// Run misst den Forward-Pass fuer jede Batch-Groesse.
// Ein abgebrochener ctx beendet den Lauf zwischen zwei Iterationen.
func Run(ctx context.Context, m model.Model, cfg Config) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(cfg.BatchSizes))
	for _, batchSize := range cfg.BatchSizes {
		r, err := runBatch(ctx, m, cfg, batchSize)
		if err != nil {
			return results, err
		}

		slog.Info("benchmark", "model", cfg.Name, "batch", batchSize, "avg", r.AvgLatency, "throughput", fmt.Sprintf("%.1f img/s", r.Throughput))
		results = append(results, r)
	}

	return results, nil
}

// input erzeugt die Eingabe fuer eine Iteration
type input func(ml.Context) (ml.Tensor, error)

func newInput(m model.Model, cfg Config, batchSize int) (input, error) {
	c := m.Config()

	if !cfg.Decode {
		pixels := GenerateBatch(cfg.Seed, batchSize, c.Channels, c.ImageSize)
		return func(ctx ml.Context) (ml.Tensor, error) {
			return ctx.FromFloats(pixels, batchSize, c.Channels, c.ImageSize, c.ImageSize), nil
		}, nil
	}

	pre, err := vision.NewPreprocessor(c, vision.Standard)
	if err != nil {
		return nil, err
	}
	blobs := GenerateTestBatch(c.ImageSize, c.ImageSize, batchSize)
	return func(ctx ml.Context) (ml.Tensor, error) {
		return pre.Decode(ctx, blobs...)
	}, nil
}

func runBatch(ctx context.Context, m model.Model, cfg Config, batchSize int) (Result, error) {
	in, err := newInput(m, cfg, batchSize)
	if err != nil {
		return Result{}, err
	}

	step := func() error {
		mctx := m.Backend().NewContext(ml.ContextParams{})
		defer mctx.Close()

		images, err := in(mctx)
		if err != nil {
			return err
		}
		_, err = model.Forward(mctx, m, images)
		return err
	}

	// Warmup-Phase
	for range cfg.WarmupRuns {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := step(); err != nil {
			return Result{}, err
		}
	}

	runtime.GC()
	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)

	latencies := make([]time.Duration, 0, cfg.Iterations)
	for range cfg.Iterations {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		start := time.Now()
		if err := step(); err != nil {
			return Result{}, err
		}
		latencies = append(latencies, time.Since(start))
	}

	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	return buildResult(m, cfg, batchSize, latencies, memAfter.TotalAlloc-memBefore.TotalAlloc), nil
}

func buildResult(m model.Model, cfg Config, batchSize int, latencies []time.Duration, mem uint64) Result {
	s := calculateStats(latencies)
	c := m.Config()
	perImage := func(d time.Duration) time.Duration { return d / time.Duration(batchSize) }

	var throughput float64
	if s.total > 0 {
		throughput = float64(batchSize*len(latencies)) / s.total.Seconds()
	}

	return Result{
		Model:      cfg.Name,
		Backend:    m.Backend().Name(),
		Threads:    cfg.Threads,
		ImageSize:  fmt.Sprintf("%dx%dx%d", c.Channels, c.ImageSize, c.ImageSize),
		BatchSize:  batchSize,
		Iterations: len(latencies),
		Decode:     cfg.Decode,
		TotalTime:  s.total,
		AvgLatency: perImage(s.mean),
		StdDev:     perImage(s.stddev),
		MinLatency: perImage(s.min),
		MaxLatency: perImage(s.max),
		P95Latency: perImage(s.p95),
		Throughput: throughput,
		MemoryUsed: mem / uint64(max(1, len(latencies))),
		Params:     model.NumParams(m),
	}
}

// ============================================================================
// Statistik
// ============================================================================

type latencyStats struct {
	total  time.Duration
	mean   time.Duration
	stddev time.Duration
	min    time.Duration
	max    time.Duration
	p95    time.Duration
}

// calculateStats berechnet Statistiken aus Latenz-Messungen
func calculateStats(latencies []time.Duration) latencyStats {
	if len(latencies) == 0 {
		return latencyStats{}
	}

	xs := make([]float64, len(latencies))
	var total time.Duration
	for i, d := range latencies {
		xs[i] = float64(d)
		total += d
	}
	slices.Sort(xs)

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}

	return latencyStats{
		total:  total,
		mean:   time.Duration(mean),
		stddev: time.Duration(std),
		min:    time.Duration(xs[0]),
		max:    time.Duration(xs[len(xs)-1]),
		p95:    time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
	}
}
