// types.go - Typen fuer config.json und preprocessor_config.json
//
// Enthaelt Typen fuer:
// - config.json Parsing (ConfigModelInfo, VisionConfig)
// - preprocessor_config.json Parsing (PreprocessorConfig)
// - Fehler (HuggingFaceError)
package huggingface

// Unterstuetzte model_type Werte
const (
	ModelTypeViT  = "vit"
	ModelTypeDeiT = "deit"
)

// Standard-Werte, wenn config.json ein Feld weglaesst (ViTConfig Defaults)
const (
	DefaultImageSize    = 224
	DefaultPatchSize    = 16
	DefaultNumChannels  = 3
	DefaultLayerNormEps = 1e-12
)

// ConfigModelInfo enthaelt die Felder einer HuggingFace config.json,
// die fuer einen Vision Transformer gebraucht werden
type ConfigModelInfo struct {
	ModelType     string   `json:"model_type"`
	Architectures []string `json:"architectures,omitempty"`

	HiddenSize        int `json:"hidden_size,omitempty"`
	IntermediateSize  int `json:"intermediate_size,omitempty"`
	NumHiddenLayers   int `json:"num_hidden_layers,omitempty"`
	NumAttentionHeads int `json:"num_attention_heads,omitempty"`

	ImageSize   int `json:"image_size,omitempty"`
	PatchSize   int `json:"patch_size,omitempty"`
	NumChannels int `json:"num_channels,omitempty"`

	LayerNormEps      float64 `json:"layer_norm_eps,omitempty"`
	HiddenDropoutProb float64 `json:"hidden_dropout_prob,omitempty"`

	// Klassifikation
	ID2Label  map[string]string `json:"id2label,omitempty"`
	NumLabels int               `json:"num_labels,omitempty"`

	// bei Multimodal-Checkpoints stehen die Vision-Groessen hier
	VisionConfig *VisionConfig `json:"vision_config,omitempty"`

	TorchDtype string `json:"torch_dtype,omitempty"`
}

// VisionConfig ist der vision_config Block einer config.json
type VisionConfig struct {
	HiddenSize        int     `json:"hidden_size"`
	IntermediateSize  int     `json:"intermediate_size,omitempty"`
	NumHiddenLayers   int     `json:"num_hidden_layers"`
	NumAttentionHeads int     `json:"num_attention_heads"`
	ImageSize         int     `json:"image_size"`
	PatchSize         int     `json:"patch_size"`
	NumChannels       int     `json:"num_channels,omitempty"`
	LayerNormEps      float64 `json:"layer_norm_eps,omitempty"`
}

// PreprocessorConfig enthaelt die Bildvorverarbeitungs-Parameter
// aus preprocessor_config.json
type PreprocessorConfig struct {
	ImageProcessorType string `json:"image_processor_type,omitempty"`

	Size     *ImageSizeConfig `json:"size,omitempty"`
	CropSize *ImageSizeConfig `json:"crop_size,omitempty"`

	ImageMean []float32 `json:"image_mean,omitempty"`
	ImageStd  []float32 `json:"image_std,omitempty"`

	DoNormalize *bool `json:"do_normalize,omitempty"`
}

// ImageSizeConfig ist die Bildgroesse; aeltere Dateien speichern nur eine Zahl
type ImageSizeConfig struct {
	Height       int `json:"height,omitempty"`
	Width        int `json:"width,omitempty"`
	ShortestEdge int `json:"shortest_edge,omitempty"`
}

// HuggingFaceError beschreibt einen Fehler beim Import
type HuggingFaceError struct {
	Op   string // Operation (parse, load, convert)
	Path string
	Err  error
}

func (e *HuggingFaceError) Error() string {
	if e.Path != "" {
		return "huggingface " + e.Op + " [" + e.Path + "]: " + e.Err.Error()
	}
	return "huggingface " + e.Op + ": " + e.Err.Error()
}

func (e *HuggingFaceError) Unwrap() error {
	return e.Err
}
