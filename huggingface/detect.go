// detect.go - Import einer HuggingFace config.json als Modell-Konfiguration
package huggingface

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ollama/vit/model"
)

var (
	ErrConfigNotFound   = errors.New("config.json nicht gefunden")
	ErrInvalidConfig    = errors.New("ungueltige config.json Struktur")
	ErrUnknownModelType = errors.New("kein Vision Transformer")
	ErrNoLabels         = errors.New("keine Klassen (id2label oder num_labels) angegeben")
)

// ParseConfig parst die rohen JSON-Bytes einer config.json
func ParseConfig(data []byte) (*ConfigModelInfo, error) {
	var info ConfigModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, &HuggingFaceError{Op: "parse", Err: fmt.Errorf("%w: %v", ErrInvalidConfig, err)}
	}
	if info.ModelType == "" && len(info.Architectures) == 0 {
		return nil, &HuggingFaceError{Op: "parse", Err: ErrInvalidConfig}
	}
	return &info, nil
}

// LoadConfig liest config.json aus einem Modell-Verzeichnis
func LoadConfig(dir string) (*ConfigModelInfo, error) {
	path := filepath.Join(dir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &HuggingFaceError{Op: "load", Path: path, Err: ErrConfigNotFound}
		}
		return nil, &HuggingFaceError{Op: "load", Path: path, Err: err}
	}
	return ParseConfig(data)
}

// IsVisionTransformer meldet, ob die config.json einen ViT oder DeiT beschreibt
func IsVisionTransformer(info *ConfigModelInfo) bool {
	switch strings.ToLower(info.ModelType) {
	case ModelTypeViT, ModelTypeDeiT, "vit_model":
		return true
	}
	for _, arch := range info.Architectures {
		a := strings.ToLower(arch)
		if strings.HasPrefix(a, "vit") || strings.HasPrefix(a, "deit") {
			return true
		}
	}
	return false
}

// vision gibt die Vision-Groessen zurueck, bevorzugt aus vision_config
func (info *ConfigModelInfo) vision() VisionConfig {
	if info.VisionConfig != nil {
		return *info.VisionConfig
	}
	return VisionConfig{
		HiddenSize:        info.HiddenSize,
		IntermediateSize:  info.IntermediateSize,
		NumHiddenLayers:   info.NumHiddenLayers,
		NumAttentionHeads: info.NumAttentionHeads,
		ImageSize:         info.ImageSize,
		PatchSize:         info.PatchSize,
		NumChannels:       info.NumChannels,
		LayerNormEps:      info.LayerNormEps,
	}
}

// NumClasses gibt die Anzahl Klassen aus id2label oder num_labels zurueck
func (info *ConfigModelInfo) NumClasses() int {
	if len(info.ID2Label) > 0 {
		return len(info.ID2Label)
	}
	return info.NumLabels
}

// Labels gibt die Klassennamen nach Index sortiert zurueck.
// Fehlende Indizes werden als "LABEL_<i>" aufgefuellt.
func (info *ConfigModelInfo) Labels() []string {
	n := info.NumClasses()
	labels := make([]string, n)
	for i := range labels {
		labels[i] = "LABEL_" + strconv.Itoa(i)
	}
	for k, v := range info.ID2Label {
		if i, err := strconv.Atoi(k); err == nil && i >= 0 && i < n {
			labels[i] = v
		}
	}
	return labels
}

// ToModelConfig uebersetzt eine config.json in eine Modell-Konfiguration.
// Der Kopf pooled ueber das Aggregat-Token, wie ViTForImageClassification.
func ToModelConfig(info *ConfigModelInfo) (model.Config, error) {
	if !IsVisionTransformer(info) {
		return model.Config{}, &HuggingFaceError{Op: "convert", Err: fmt.Errorf("%w: model_type=%q architectures=%v", ErrUnknownModelType, info.ModelType, info.Architectures)}
	}

	v := info.vision()
	if v.ImageSize == 0 {
		v.ImageSize = DefaultImageSize
	}
	if v.PatchSize == 0 {
		v.PatchSize = DefaultPatchSize
	}
	if v.NumChannels == 0 {
		v.NumChannels = DefaultNumChannels
	}
	if v.LayerNormEps == 0 {
		v.LayerNormEps = DefaultLayerNormEps
	}
	if v.NumAttentionHeads <= 0 || v.HiddenSize%v.NumAttentionHeads != 0 {
		return model.Config{}, &HuggingFaceError{Op: "convert", Err: &model.ConfigError{
			Field: "num_attention_heads", Value: v.NumAttentionHeads,
			Reason: fmt.Sprintf("must divide hidden_size %d", v.HiddenSize),
		}}
	}

	classes := info.NumClasses()
	if classes == 0 {
		return model.Config{}, &HuggingFaceError{Op: "convert", Err: ErrNoLabels}
	}

	c := model.Config{
		Architecture: "vit",
		EmbedDim:     v.HiddenSize,
		PatchSize:    v.PatchSize,
		ImageSize:    v.ImageSize,
		Depth:        v.NumHiddenLayers,
		HeadDim:      v.HiddenSize / v.NumAttentionHeads,
		NumHeads:     v.NumAttentionHeads,
		Dropout:      float32(info.HiddenDropoutProb),
		NumClasses:   classes,
		Channels:     v.NumChannels,
		MLPDim:       v.IntermediateSize,
		Pooling:      model.PoolingCLS,
		Positional:   model.PositionalLearned,
		LayerNormEps: float32(v.LayerNormEps),
	}
	if err := c.Validate(); err != nil {
		return model.Config{}, &HuggingFaceError{Op: "convert", Err: err}
	}
	return c.WithDefaults(), nil
}
