package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/vit/model"
	"github.com/ollama/vit/model/models/vit"
	"github.com/ollama/vit/server"
	"github.com/ollama/vit/vision"
	"github.com/ollama/vit/vision/benchmark"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewCLI()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func tinyConfig() model.Config {
	return model.Config{
		EmbedDim: 8, PatchSize: 4, ImageSize: 8, Depth: 1, HeadDim: 4,
		NumHeads: 2, NumClasses: 3, Channels: 3,
	}
}

func writeConfig(t *testing.T, c model.Config) string {
	t.Helper()

	data, err := json.Marshal(c)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writePNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := range 10 {
		for x := range 10 {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestParamsArgs(t *testing.T) {
	out, err := execute(t, "params", "8", "2", "4", "1", "4", "2", "0", "3", "1")
	require.NoError(t, err)

	c := model.Config{EmbedDim: 8, PatchSize: 2, ImageSize: 4, Depth: 1, HeadDim: 4, NumHeads: 2, NumClasses: 3, Channels: 1}
	assert.Equal(t, strconv.Itoa(vit.ParamCount(c))+"\n", out)
}

func TestParamsReference(t *testing.T) {
	if testing.Short() {
		t.Skip("baut das Referenzmodell mit 20M Parametern")
	}

	out, err := execute(t, "params", "512", "16", "256", "6", "64", "8", "0.2", "2000", "1")
	require.NoError(t, err)
	assert.Equal(t, "20205008\n", out)
}

func TestParamsVerbose(t *testing.T) {
	c := tinyConfig()
	out, err := execute(t, "params", "--config", writeConfig(t, c), "--verbose")
	require.NoError(t, err)

	for _, name := range []string{"patch_embd.proj.weight", "cls_token", "position_embd", "blk.0.attn_q.weight", "head.proj.bias"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "NAME")
	assert.True(t, strings.HasSuffix(out, strconv.Itoa(vit.ParamCount(c))+"\n"), out)
}

func TestParamsErrors(t *testing.T) {
	cases := map[string][]string{
		"zu wenige Argumente": {"params", "512", "16"},
		"zwei Quellen":        {"params", "--preset", "reference", "8", "2", "4", "1", "4", "2", "0", "3", "1"},
		"unbekanntes Preset":  {"params", "--preset", "vit-bse"},
		"Patch passt nicht":   {"params", "8", "3", "4", "1", "4", "2", "0", "3", "1"},
		"fehlende Datei":      {"params", "--config", filepath.Join(t.TempDir(), "fehlt.json")},
		"NaN Dropout":         {"params", "16", "4", "8", "1", "4", "4", "NaN", "3", "1"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}

	_, err := execute(t, "params", "--preset", "vit-bse")
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.Contains(t, err.Error(), "vit-base")

	_, err = execute(t, "params", "--preset", "reference", "--config", "x.json")
	assert.ErrorIs(t, err, errAmbiguousModel)
}

func TestPresets(t *testing.T) {
	out, err := execute(t, "presets")
	require.NoError(t, err)

	for _, name := range model.PresetNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "20.21M")
	assert.Contains(t, out, "1x256x256/16")
}

func TestRunRandom(t *testing.T) {
	out, err := execute(t, "run", "--config", writeConfig(t, tinyConfig()), "--random", "2", "--top-k", "2")
	require.NoError(t, err)

	var results []runResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	for i, r := range results {
		assert.Equal(t, "random-"+strconv.Itoa(i), r.Image)
		require.Len(t, r.Top, 2)
		assert.GreaterOrEqual(t, r.Top[0].Logit, r.Top[1].Logit)
	}
}

func TestRunImages(t *testing.T) {
	dir := t.TempDir()
	images := []string{
		writePNG(t, dir, "rot.png", color.RGBA{255, 0, 0, 255}),
		writePNG(t, dir, "blau.png", color.RGBA{0, 0, 255, 255}),
	}

	args := append([]string{"run", "--config", writeConfig(t, tinyConfig())}, images...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var results []runResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, images[0], results[0].Image)
	assert.Equal(t, images[1], results[1].Image)

	// Default top-k ist groesser als die Klassenanzahl
	assert.Len(t, results[0].Top, 3)
}

func TestRunErrors(t *testing.T) {
	cfg := writeConfig(t, tinyConfig())
	img := writePNG(t, t.TempDir(), "a.png", color.White)

	cases := map[string][]string{
		"keine Bilder":     {"run", "--config", cfg},
		"beides":           {"run", "--config", cfg, "--random", "1", img},
		"top-k null":       {"run", "--config", cfg, "--random", "1", "--top-k", "0"},
		"fehlendes Bild":   {"run", "--config", cfg, filepath.Join(t.TempDir(), "fehlt.png")},
		"negatives random": {"run", "--config", cfg, "--random", "-1"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestRunLabelsFile(t *testing.T) {
	cfg := writeConfig(t, tinyConfig())
	path := filepath.Join(t.TempDir(), "labels.txt")

	require.NoError(t, os.WriteFile(path, []byte("katze\nhund\nvogel\n\n"), 0o644))
	t.Setenv("VIT_LABELS", path)

	out, err := execute(t, "run", "--config", cfg, "--random", "1", "--top-k", "3")
	require.NoError(t, err)

	var results []runResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)

	var got []string
	for _, p := range results[0].Top {
		got = append(got, p.Label)
	}
	assert.ElementsMatch(t, []string{"katze", "hund", "vogel"}, got)

	require.NoError(t, os.WriteFile(path, []byte("katze\nhund\n"), 0o644))
	_, err = execute(t, "run", "--config", cfg, "--random", "1")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRunRemote(t *testing.T) {
	m, err := model.New(tinyConfig(), model.WithThreads(1))
	require.NoError(t, err)
	s, err := server.NewServer(m, []string{"a", "b", "c"}, vision.ImageNet)
	require.NoError(t, err)

	srv := httptest.NewServer(s.GenerateRoutes())
	defer srv.Close()
	t.Setenv("VIT_HOST", srv.URL)

	img := writePNG(t, t.TempDir(), "a.png", color.Black)
	out, err := execute(t, "run", "--remote", "--top-k", "1", img)
	require.NoError(t, err)

	var results []runResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.Len(t, results[0].Top, 1)
	assert.Contains(t, []string{"a", "b", "c"}, results[0].Top[0].Label)

	out, err = execute(t, "run", "--remote", "--random", "3")
	require.NoError(t, err)
	results = nil
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 3)
}

func TestBench(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	mdPath := filepath.Join(dir, "report.md")

	out, err := execute(t, "bench", "--config", writeConfig(t, tinyConfig()),
		"--iterations", "2", "--warmup", "0", "--batch", "1,2",
		"--json", jsonPath, "--markdown", mdPath)
	require.NoError(t, err)
	assert.Contains(t, out, "BATCH")
	assert.Contains(t, out, jsonPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var report benchmark.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Results[0].BatchSize)
	assert.Equal(t, 2, report.Results[1].BatchSize)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), report.RunID)
}

func TestParseBatchSizes(t *testing.T) {
	got, err := parseBatchSizes(" 1, 4,,8 ")
	require.NoError(t, err)
	if diff := cmp.Diff([]int{1, 4, 8}, got); diff != "" {
		t.Errorf("Batch-Groessen falsch (-erwartet +bekommen):\n%s", diff)
	}

	for _, s := range []string{"0", "1,x", "-2"} {
		_, err := parseBatchSizes(s)
		assert.ErrorIs(t, err, benchmark.ErrInvalidConfig, s)
	}
}

func TestEnvDocs(t *testing.T) {
	root := NewCLI()

	for _, c := range root.Commands() {
		switch c.Name() {
		case "serve":
			assert.Contains(t, c.UsageString(), "VIT_MAX_BATCH")
			assert.Contains(t, c.UsageString(), "VIT_ORIGINS")
		case "run":
			assert.Contains(t, c.UsageString(), "VIT_HOST")
		case "params", "bench":
			assert.Contains(t, c.UsageString(), "VIT_PRESET")
		}
	}
}

func TestVersionFlag(t *testing.T) {
	t.Setenv("VIT_HOST", "127.0.0.1:1")

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "vit version is")
}
