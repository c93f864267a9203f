package huggingface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/vit/model"
	"github.com/ollama/vit/vision"
)

func TestParsePreprocessorConfig(t *testing.T) {
	p, err := ParsePreprocessorConfig([]byte(`{
		"image_processor_type": "ViTImageProcessor",
		"image_mean": [0.485, 0.456, 0.406],
		"image_std": [0.229, 0.224, 0.225],
		"size": {"height": 224, "width": 224}
	}`))
	require.NoError(t, err)

	assert.Equal(t, vision.ImageNet, p.Normalization())
	assert.Equal(t, 224, p.ImageSize())
}

func TestPreprocessorSizeFormats(t *testing.T) {
	tests := map[string]struct {
		json string
		want int
	}{
		"Zahl":          {`{"size": 384}`, 384},
		"shortest_edge": {`{"size": {"shortest_edge": 256}, "crop_size": {"height": 224, "width": 224}}`, 224},
		"nur crop":      {`{"crop_size": 196}`, 196},
		"nichts":        {`{}`, 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := ParsePreprocessorConfig([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.ImageSize())
		})
	}
}

func TestPreprocessorNormalization(t *testing.T) {
	var nilConfig *PreprocessorConfig
	assert.Equal(t, vision.Standard, nilConfig.Normalization())
	assert.Equal(t, 0, nilConfig.ImageSize())

	p, err := ParsePreprocessorConfig([]byte(`{"do_normalize": false, "image_mean": [0.1, 0.1, 0.1]}`))
	require.NoError(t, err)
	assert.Equal(t, vision.NoNorm, p.Normalization())

	p, err = ParsePreprocessorConfig([]byte(`{"image_mean": [0.1, 0.2, 0.3]}`))
	require.NoError(t, err)
	norm := p.Normalization()
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, norm.Mean)
	assert.Equal(t, vision.Standard.Std, norm.Std)
}

func TestParsePreprocessorConfigInvalid(t *testing.T) {
	for _, data := range []string{
		`{"image_mean": [0.5, 0.5]}`,
		`{"image_std": [0.5, 0, 0.5]}`,
		`not json`,
	} {
		_, err := ParsePreprocessorConfig([]byte(data))
		assert.ErrorIs(t, err, ErrInvalidPreprocessor, data)
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(vitBase), 0o644))

	c, norm, labels, err := Import(dir)
	require.NoError(t, err)
	assert.Equal(t, 768, c.EmbedDim)
	assert.Equal(t, vision.Standard, norm)
	assert.Equal(t, []string{"tench", "goldfish", "great white shark"}, labels)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "preprocessor_config.json"), []byte(`{"image_mean": [0.485, 0.456, 0.406], "image_std": [0.229, 0.224, 0.225], "size": 224}`), 0o644))
	_, norm, _, err = Import(dir)
	require.NoError(t, err)
	assert.Equal(t, vision.ImageNet, norm)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "preprocessor_config.json"), []byte(`{"size": 384}`), 0o644))
	_, _, _, err = Import(dir)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, _, _, err = Import(t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
