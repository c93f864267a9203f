package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/vit/model"
	_ "github.com/ollama/vit/model/models"
)

func tinyModel(t *testing.T, channels int) model.Model {
	t.Helper()

	m, err := model.New(model.Config{
		EmbedDim: 8, PatchSize: 4, ImageSize: 8, Depth: 1, HeadDim: 4,
		NumHeads: 2, NumClasses: 3, Channels: channels,
	}, model.WithThreads(1))
	require.NoError(t, err)
	return m
}

func TestCalculateStats(t *testing.T) {
	latencies := []time.Duration{4 * time.Millisecond, 2 * time.Millisecond, 6 * time.Millisecond, 8 * time.Millisecond}
	s := calculateStats(latencies)

	assert.Equal(t, 20*time.Millisecond, s.total)
	assert.Equal(t, 5*time.Millisecond, s.mean)
	assert.Equal(t, 2*time.Millisecond, s.min)
	assert.Equal(t, 8*time.Millisecond, s.max)
	assert.Equal(t, 8*time.Millisecond, s.p95)
	assert.InDelta(t, float64(2582*time.Microsecond), float64(s.stddev), float64(time.Microsecond))

	one := calculateStats([]time.Duration{time.Second})
	assert.Equal(t, time.Duration(0), one.stddev)
	assert.Equal(t, time.Second, one.p95)

	assert.Equal(t, latencyStats{}, calculateStats(nil))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"iterations": func(c *Config) { c.Iterations = 0 },
		"warmup":     func(c *Config) { c.WarmupRuns = -1 },
		"batches":    func(c *Config) { c.BatchSizes = nil },
		"batch null": func(c *Config) { c.BatchSizes = []int{1, 0} },
	} {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestRun(t *testing.T) {
	m := tinyModel(t, 1)
	cfg := Config{Name: "tiny", Iterations: 2, WarmupRuns: 1, BatchSizes: []int{1, 3}, Threads: 1, Seed: 1}

	results, err := Run(context.Background(), m, cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, r := range results {
		assert.Equal(t, cfg.BatchSizes[i], r.BatchSize)
		assert.Equal(t, 2, r.Iterations)
		assert.Equal(t, "cpu", r.Backend)
		assert.Equal(t, "1x8x8", r.ImageSize)
		assert.Equal(t, model.NumParams(m), r.Params)
		assert.Positive(t, r.Throughput)
		assert.LessOrEqual(t, r.MinLatency, r.MaxLatency)
	}
}

func TestRunDecode(t *testing.T) {
	m := tinyModel(t, 3)
	cfg := Config{Name: "tiny", Iterations: 1, BatchSizes: []int{2}, Threads: 1, Decode: true}

	results, err := Run(context.Background(), m, cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Decode)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, tinyModel(t, 1), Config{Iterations: 1, BatchSizes: []int{1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateBatch(t *testing.T) {
	a := GenerateBatch(7, 2, 1, 4)
	b := GenerateBatch(7, 2, 1, 4)
	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, GenerateBatch(8, 2, 1, 4))

	img := GenerateTestImage(16, 16, 1)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, img[:3])
	assert.Len(t, GenerateTestBatch(8, 8, 3), 3)
}

func TestReport(t *testing.T) {
	results := []Result{
		{Model: "tiny", Backend: "cpu", ImageSize: "1x8x8", BatchSize: 1, Iterations: 2, Throughput: 10, MinLatency: 3 * time.Millisecond, Params: 1234},
		{Model: "tiny", Backend: "cpu", ImageSize: "1x8x8", BatchSize: 4, Iterations: 2, Throughput: 25, MinLatency: 2 * time.Millisecond, Params: 1234},
	}
	r := NewReport(results, Config{Name: "tiny", Threads: 2})

	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Summary.BestBatchSize)
	assert.Equal(t, 25.0, r.Summary.BestThroughput)
	assert.Equal(t, 2*time.Millisecond, r.Summary.MinLatency)
	assert.Equal(t, 4, r.Summary.TotalRuns)

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))
	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)

	buf.Reset()
	require.NoError(t, r.WriteMarkdown(&buf))
	assert.Contains(t, buf.String(), r.RunID)
	assert.Contains(t, buf.String(), "| tiny | cpu | 1x8x8 | 4 |")

	buf.Reset()
	r.WriteConsole(&buf)
	assert.Contains(t, buf.String(), "BATCH")
	assert.Contains(t, buf.String(), "1K params")

	dir := t.TempDir()
	require.NoError(t, r.ExportJSON(filepath.Join(dir, "bench.json")))
	require.NoError(t, r.ExportMarkdown(filepath.Join(dir, "bench.md")))
	_, err = os.Stat(filepath.Join(dir, "bench.md"))
	assert.NoError(t, err)
}

func TestSortByThroughput(t *testing.T) {
	results := []Result{{BatchSize: 1, Throughput: 1}, {BatchSize: 2, Throughput: 3}, {BatchSize: 3, Throughput: 2}}
	SortByThroughput(results)
	assert.Equal(t, []int{2, 3, 1}, []int{results[0].BatchSize, results[1].BatchSize, results[2].BatchSize})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500.00us", formatDuration(500*time.Microsecond))
	assert.Equal(t, "12.50ms", formatDuration(12500*time.Microsecond))
	assert.Equal(t, "2.00s", formatDuration(2*time.Second))
}
