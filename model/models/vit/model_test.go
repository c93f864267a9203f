package vit

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/model"
)

// smallConfig ist eine kleine Konfiguration fuer schnelle Tests
func smallConfig() model.Config {
	return model.Config{
		EmbedDim:   16,
		PatchSize:  4,
		ImageSize:  8,
		Depth:      2,
		HeadDim:    4,
		NumHeads:   2,
		Dropout:    0.1,
		NumClasses: 5,
		Channels:   2,
	}
}

func newModel(t *testing.T, c model.Config, opts ...model.Option) *Model {
	t.Helper()

	opts = append([]model.Option{model.WithSeed(1), model.WithThreads(2)}, opts...)
	m, err := model.New(c, opts...)
	require.NoError(t, err)
	return m.(*Model)
}

func randomImages(ctx ml.Context, seed uint64, shape ...int) ml.Tensor {
	r := rand.New(rand.NewPCG(seed, seed))
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(r.NormFloat64())
	}
	return ctx.FromFloats(data, shape...)
}

// expectedParams zaehlt die Parameter unabhaengig aus der Konfiguration
func expectedParams(c model.Config) int {
	c = c.WithDefaults()

	linear := func(in, out int) int { return in*out + out }
	norm := 2 * c.EmbedDim
	attn := c.NumHeads * c.HeadDim

	n := linear(c.PatchDim(), c.EmbedDim)
	if c.Pooling == model.PoolingCLS {
		n += c.EmbedDim
	}
	if c.Positional == model.PositionalLearned {
		n += c.SeqLen() * c.EmbedDim
	}

	block := norm + 3*linear(c.EmbedDim, attn) + linear(attn, c.EmbedDim) +
		norm + linear(c.EmbedDim, c.MLPDim) + linear(c.MLPDim, c.EmbedDim)
	n += c.Depth * block

	n += norm + linear(c.EmbedDim, c.NumClasses)
	return n
}

func TestReferenceParamCount(t *testing.T) {
	c, err := model.LookupPreset("reference")
	require.NoError(t, err)

	m := newModel(t, c)

	assert.Equal(t, expectedParams(c), m.NumParams())
	assert.Equal(t, 20_205_008, m.NumParams())
	assert.Equal(t, m.NumParams(), model.NumParams(m))
}

func TestParamCountVariants(t *testing.T) {
	cases := map[string]func(*model.Config){
		"cls learned":     func(c *model.Config) {},
		"mean learned":    func(c *model.Config) { c.Pooling = model.PoolingMean },
		"cls sinusoidal":  func(c *model.Config) { c.Positional = model.PositionalSinusoidal },
		"mean sinusoidal": func(c *model.Config) { c.Pooling, c.Positional = model.PoolingMean, model.PositionalSinusoidal },
		"custom mlp":      func(c *model.Config) { c.MLPDim = 24 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := smallConfig()
			mutate(&c)

			m := newModel(t, c)
			assert.Equal(t, expectedParams(c), m.NumParams())
			assert.Equal(t, m.NumParams(), ParamCount(c))
		})
	}

	assert.Equal(t, 6229, expectedParams(smallConfig()))
}

func TestParamCountPresets(t *testing.T) {
	want := map[string]int{
		"reference": 20_205_008,
		"vit-base":  86_567_656,
	}

	for _, p := range model.Presets() {
		assert.Equal(t, expectedParams(p.Config), ParamCount(p.Config), p.Name)
		if n, ok := want[p.Name]; ok {
			assert.Equal(t, n, ParamCount(p.Config), p.Name)
		}
	}
}

func TestParameterOrder(t *testing.T) {
	c := smallConfig()
	c.Depth = 1
	m := newModel(t, c)

	want := []string{
		"patch_embd.proj.weight", "patch_embd.proj.bias",
		"cls_token",
		"position_embd",
		"blk.0.ln1.weight", "blk.0.ln1.bias",
		"blk.0.attn_q.weight", "blk.0.attn_q.bias",
		"blk.0.attn_k.weight", "blk.0.attn_k.bias",
		"blk.0.attn_v.weight", "blk.0.attn_v.bias",
		"blk.0.attn_out.weight", "blk.0.attn_out.bias",
		"blk.0.ln2.weight", "blk.0.ln2.bias",
		"blk.0.ffn_up.weight", "blk.0.ffn_up.bias",
		"blk.0.ffn_down.weight", "blk.0.ffn_down.bias",
		"head.norm.weight", "head.norm.bias",
		"head.proj.weight", "head.proj.bias",
	}
	if diff := cmp.Diff(want, m.Parameters().Names()); diff != "" {
		t.Errorf("Reihenfolge (-erwartet +bekommen):\n%s", diff)
	}

	shapes := map[string][]int{
		"patch_embd.proj.weight": {16, 2 * 4 * 4},
		"cls_token":              {1, 1, 16},
		"position_embd":          {5, 16},
		"blk.0.attn_q.weight":    {8, 16},
		"blk.0.attn_out.weight":  {16, 8},
		"blk.0.ffn_up.weight":    {64, 16},
		"head.proj.weight":       {5, 16},
	}
	for name, shape := range shapes {
		tensor, ok := m.Parameters().Get(name)
		require.True(t, ok, name)
		if diff := cmp.Diff(shape, tensor.Shape()); diff != "" {
			t.Errorf("%s Shape (-erwartet +bekommen):\n%s", name, diff)
		}
	}
}

func TestNumPatches(t *testing.T) {
	cases := []struct {
		image, patch int
	}{
		{8, 4}, {224, 16}, {256, 16}, {32, 32}, {30, 3},
	}

	for _, tt := range cases {
		c := smallConfig()
		c.ImageSize, c.PatchSize = tt.image, tt.patch
		c.Depth = 1

		m := newModel(t, c)
		want := (tt.image / tt.patch) * (tt.image / tt.patch)
		assert.Equal(t, want, m.numPatches)

		ctx := m.Backend().NewContext(ml.ContextParams{})
		out, err := m.PatchEmbedding.Forward(ctx, randomImages(ctx, 1, 1, 2, tt.image, tt.image), m.VisionModelOptions)
		require.NoError(t, err)
		if diff := cmp.Diff([]int{1, want, 16}, out.Shape()); diff != "" {
			t.Errorf("image=%d patch=%d (-erwartet +bekommen):\n%s", tt.image, tt.patch, diff)
		}
	}
}

func TestConstructionErrors(t *testing.T) {
	cases := map[string]func(*model.Config){
		"image not multiple of patch": func(c *model.Config) { c.ImageSize = 10 },
		"zero depth":                  func(c *model.Config) { c.Depth = 0 },
		"negative heads":              func(c *model.Config) { c.NumHeads = -1 },
		"attention width mismatch":    func(c *model.Config) { c.AttnDim = 12 },
		"dropout one":                 func(c *model.Config) { c.Dropout = 1 },
		"unknown pooling":             func(c *model.Config) { c.Pooling = "max" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := smallConfig()
			mutate(&c)

			_, err := model.New(c)
			if !errors.Is(err, model.ErrConfiguration) {
				t.Fatalf("erwartet ErrConfiguration, bekommen %v", err)
			}

			b, berr := ml.NewBackend("cpu", ml.BackendParams{NumThreads: 1})
			require.NoError(t, berr)
			_, err = New(b, c, model.DefaultOptions())
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}
}

func TestPatchEmbeddingMatchesManualProjection(t *testing.T) {
	c := smallConfig()
	c.Depth = 1
	m := newModel(t, c)
	ctx := m.Backend().NewContext(ml.ContextParams{})

	images := randomImages(ctx, 9, 1, 2, 8, 8)
	out, err := m.PatchEmbedding.Forward(ctx, images, m.VisionModelOptions)
	require.NoError(t, err)

	// Patch (zeile 1, spalte 0) = Index 2, kanalweise geflacht
	pixels := images.Floats()
	patch := make([]float32, 0, 2*4*4)
	for ch := range 2 {
		for y := 4; y < 8; y++ {
			for x := 0; x < 4; x++ {
				patch = append(patch, pixels[ch*64+y*8+x])
			}
		}
	}

	w := m.PatchEmbedding.Proj.Weight.Floats()
	b := m.PatchEmbedding.Proj.Bias.Floats()
	got := out.Floats()
	for o := range 16 {
		sum := float64(b[o])
		for i, v := range patch {
			sum += float64(w[o*32+i]) * float64(v)
		}
		assert.InDelta(t, sum, got[2*16+o], 1e-4, "Ausgabe %d", o)
	}
}

func TestEncoderBlockPreservesShape(t *testing.T) {
	m := newModel(t, smallConfig())
	ctx := m.Backend().NewContext(ml.ContextParams{})

	for _, shape := range [][]int{{1, 5, 16}, {3, 5, 16}, {2, 1, 16}, {2, 9, 16}} {
		in := randomImages(ctx, 2, shape...)
		out, err := m.Encoder.Layer(0).Forward(ctx, in, m.VisionModelOptions)
		require.NoError(t, err)
		if diff := cmp.Diff(shape, out.Shape()); diff != "" {
			t.Errorf("Shape (-erwartet +bekommen):\n%s", diff)
		}
	}

	_, err := m.Encoder.Layer(0).Forward(ctx, randomImages(ctx, 2, 1, 5, 12), m.VisionModelOptions)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestEncoderDepthIsFixed(t *testing.T) {
	m := newModel(t, smallConfig())
	assert.Equal(t, 2, m.Encoder.Depth())
	assert.NotSame(t, m.Encoder.Layer(0), m.Encoder.Layer(1))
}

func TestForwardDeterministicInInference(t *testing.T) {
	m := newModel(t, smallConfig())
	ctx := m.Backend().NewContext(ml.ContextParams{})

	images := randomImages(ctx, 3, 2, 2, 8, 8)

	a, err := m.Forward(ctx, images)
	require.NoError(t, err)
	b, err := m.Forward(ctx, images)
	require.NoError(t, err)

	if diff := cmp.Diff([]int{2, 5}, a.Shape()); diff != "" {
		t.Fatalf("Shape (-erwartet +bekommen):\n%s", diff)
	}
	if diff := cmp.Diff(a.Floats(), b.Floats()); diff != "" {
		t.Errorf("Ausgaben nicht bitgleich:\n%s", diff)
	}

	// zweiter Kontext liefert dasselbe Ergebnis
	c, err := m.Forward(m.Backend().NewContext(ml.ContextParams{Seed: 99}), images)
	require.NoError(t, err)
	if diff := cmp.Diff(a.Floats(), c.Floats()); diff != "" {
		t.Errorf("Ausgaben haengen vom Kontext-Seed ab:\n%s", diff)
	}
}

func TestForwardDropoutUsesContextSeed(t *testing.T) {
	m := newModel(t, smallConfig())
	images := randomImages(m.Backend().NewContext(ml.ContextParams{}), 4, 1, 2, 8, 8)

	forward := func(params ml.ContextParams) []float32 {
		out, err := m.Forward(m.Backend().NewContext(params), images)
		require.NoError(t, err)
		return out.Floats()
	}

	inference := forward(ml.ContextParams{})
	a := forward(ml.ContextParams{Training: true, Seed: 5})
	b := forward(ml.ContextParams{Training: true, Seed: 5})
	c := forward(ml.ContextParams{Training: true, Seed: 6})

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("gleicher Seed, unterschiedliche Ausgaben:\n%s", diff)
	}
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, inference, a)
}

func TestForwardShapeErrors(t *testing.T) {
	m := newModel(t, smallConfig())
	ctx := m.Backend().NewContext(ml.ContextParams{})

	cases := map[string][]int{
		"wrong channels":     {1, 3, 8, 8},
		"wrong size":         {1, 2, 12, 12},
		"not divisible":      {1, 2, 10, 10},
		"non square":         {1, 2, 8, 16},
		"missing batch axis": {2, 8, 8},
	}

	for name, shape := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Forward(ctx, randomImages(ctx, 1, shape...))
			var shapeErr *model.ShapeError
			if !errors.As(err, &shapeErr) {
				t.Fatalf("erwartet ShapeError, bekommen %v", err)
			}
			assert.ErrorIs(t, err, model.ErrShapeMismatch)
			assert.Equal(t, "patch_embedding", shapeErr.Op)
		})
	}

	// Modell bleibt nach Fehlern nutzbar
	out, err := m.Forward(ctx, randomImages(ctx, 1, 1, 2, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, out.Shape())
}

func TestPositionalEncodingSequenceMismatch(t *testing.T) {
	m := newModel(t, smallConfig())
	ctx := m.Backend().NewContext(ml.ContextParams{})

	_, err := m.Position.Forward(ctx, randomImages(ctx, 1, 2, 4, 16))
	var shapeErr *model.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "positional_encoding", shapeErr.Op)

	out, err := m.Position.Forward(ctx, randomImages(ctx, 1, 2, 5, 16))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 16}, out.Shape())
}

func TestSinusoidalTable(t *testing.T) {
	table := sinusoidalTable(3, 4)

	// Position 0: sin(0)=0, cos(0)=1
	if diff := cmp.Diff([]float32{0, 1, 0, 1}, table[:4]); diff != "" {
		t.Errorf("Position 0 (-erwartet +bekommen):\n%s", diff)
	}
	assert.InDelta(t, math.Sin(1), table[4], 1e-6)
	assert.InDelta(t, math.Cos(1), table[5], 1e-6)
	assert.InDelta(t, math.Sin(2*0.01), table[10], 1e-6)
}

func TestMeanPoolingForward(t *testing.T) {
	c := smallConfig()
	c.Pooling = model.PoolingMean
	m := newModel(t, c)

	assert.Nil(t, m.ClassToken)
	assert.Equal(t, 4, m.Position.Table.Dim(0))

	ctx := m.Backend().NewContext(ml.ContextParams{})
	out, err := m.Forward(ctx, randomImages(ctx, 1, 3, 2, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, out.Shape())
}

func TestSeedControlsInitialization(t *testing.T) {
	a := newModel(t, smallConfig(), model.WithSeed(10))
	b := newModel(t, smallConfig(), model.WithSeed(10))
	c := newModel(t, smallConfig(), model.WithSeed(11))

	wa, _ := a.Parameters().Get("blk.1.attn_q.weight")
	wb, _ := b.Parameters().Get("blk.1.attn_q.weight")
	wc, _ := c.Parameters().Get("blk.1.attn_q.weight")

	assert.Equal(t, wa.Floats(), wb.Floats())
	assert.NotEqual(t, wa.Floats(), wc.Floats())

	bound := 1 / math.Sqrt(16)
	for _, v := range wa.Floats() {
		assert.LessOrEqual(t, math.Abs(float64(v)), bound)
	}

	ln, _ := a.Parameters().Get("blk.0.ln1.weight")
	for _, v := range ln.Floats() {
		assert.Equal(t, float32(1), v)
	}
}

func TestWeightTypeRoundsParameters(t *testing.T) {
	m := newModel(t, smallConfig(), model.WithWeightType(ml.DTypeF16))

	for name, tensor := range m.Parameters().All() {
		assert.Equal(t, ml.DTypeF16, tensor.DType(), name)
	}

	w, _ := m.Parameters().Get("head.proj.weight")
	again := w.Cast(m.Backend().NewContext(ml.ContextParams{}), ml.DTypeF16)
	assert.Equal(t, w.Floats(), again.Floats())

	ctx := m.Backend().NewContext(ml.ContextParams{})
	out, err := m.Forward(ctx, randomImages(ctx, 1, 1, 2, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, out.Shape())
}

func TestParametersIndependentOfForward(t *testing.T) {
	m := newModel(t, smallConfig())
	before := m.Parameters().Names()
	count := m.NumParams()

	ctx := m.Backend().NewContext(ml.ContextParams{Training: true})
	_, err := m.Forward(ctx, randomImages(ctx, 1, 2, 2, 8, 8))
	require.NoError(t, err)

	assert.Equal(t, before, m.Parameters().Names())
	assert.Equal(t, count, m.NumParams())
}

// TestConcurrentForward laesst mehrere Forward-Aufrufe mit eigenem Kontext
// und die Parameter-Aufzaehlung parallel auf einem Modell laufen. Mit -race
// ausfuehren, um Schreibzugriffe auf die Gewichte zu erkennen.
func TestConcurrentForward(t *testing.T) {
	m := newModel(t, smallConfig())
	want := m.NumParams()

	const n = 16
	inputs := make([][]float32, n)
	expected := make([][]float32, n)
	for i := range n {
		ctx := m.Backend().NewContext(ml.ContextParams{})
		images := randomImages(ctx, uint64(i), 2, 2, 8, 8)
		inputs[i] = images.Floats()

		out, err := m.Forward(ctx, images)
		require.NoError(t, err)
		expected[i] = out.Floats()
	}

	got := make([][]float32, n)
	counts := make([]int, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx := m.Backend().NewContext(ml.ContextParams{})
			defer ctx.Close()

			out, err := m.Forward(ctx, ctx.FromFloats(inputs[i], 2, 2, 8, 8))
			if err != nil {
				errs[i] = err
				return
			}
			got[i] = out.Floats()
		}()
		go func() {
			defer wg.Done()
			counts[i] = m.Parameters().NumElements()
		}()
	}
	wg.Wait()

	for i := range n {
		t.Run(fmt.Sprintf("forward %d", i), func(t *testing.T) {
			require.NoError(t, errs[i])
			if diff := cmp.Diff(expected[i], got[i]); diff != "" {
				t.Errorf("parallele Ausgabe weicht ab (-erwartet +bekommen):\n%s", diff)
			}
			assert.Equal(t, want, counts[i])
		})
	}
}

func TestEndToEndReference(t *testing.T) {
	if testing.Short() {
		t.Skip("referenz-modell ist gross")
	}

	c, err := model.LookupPreset("reference")
	require.NoError(t, err)
	m := newModel(t, c)

	ctx := m.Backend().NewContext(ml.ContextParams{})
	logits, err := model.Forward(ctx, m, randomImages(ctx, 1, 8, 1, 256, 256))
	require.NoError(t, err)

	if diff := cmp.Diff([]int{8, 2000}, logits.Shape()); diff != "" {
		t.Fatalf("Shape (-erwartet +bekommen):\n%s", diff)
	}
	for i, v := range logits.Floats() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("logit %d ist nicht endlich: %v", i, v)
		}
	}
}
