// preprocessor.go - Parser fuer HuggingFace preprocessor_config.json
//
// Extrahiert image_mean, image_std und die Eingabegroesse.
package huggingface

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ollama/vit/model"
	"github.com/ollama/vit/vision"
)

var (
	ErrPreprocessorNotFound = errors.New("preprocessor_config.json nicht gefunden")
	ErrInvalidPreprocessor  = errors.New("ungueltige preprocessor_config.json")
)

// UnmarshalJSON akzeptiert sowohl {"height":..,"width":..} als auch eine einzelne Zahl
func (s *ImageSizeConfig) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = ImageSizeConfig{Height: n, Width: n}
		return nil
	}

	type plain ImageSizeConfig
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = ImageSizeConfig(p)
	return nil
}

// side gibt die quadratische Seitenlaenge zurueck, 0 wenn unbekannt
func (s *ImageSizeConfig) side() int {
	switch {
	case s == nil:
		return 0
	case s.Height > 0:
		return s.Height
	case s.Width > 0:
		return s.Width
	default:
		return s.ShortestEdge
	}
}

// ParsePreprocessorConfig parst JSON-Bytes einer preprocessor_config.json
func ParsePreprocessorConfig(data []byte) (*PreprocessorConfig, error) {
	var config PreprocessorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &HuggingFaceError{Op: "parse_preprocessor", Err: fmt.Errorf("%w: %v", ErrInvalidPreprocessor, err)}
	}
	if len(config.ImageMean) != 0 && len(config.ImageMean) != 3 || len(config.ImageStd) != 0 && len(config.ImageStd) != 3 {
		return nil, &HuggingFaceError{Op: "parse_preprocessor", Err: fmt.Errorf("%w: image_mean und image_std brauchen 3 Werte", ErrInvalidPreprocessor)}
	}
	for _, s := range config.ImageStd {
		if s <= 0 {
			return nil, &HuggingFaceError{Op: "parse_preprocessor", Err: fmt.Errorf("%w: image_std muss positiv sein", ErrInvalidPreprocessor)}
		}
	}
	return &config, nil
}

// LoadPreprocessorConfig liest preprocessor_config.json aus einem Modell-Verzeichnis
func LoadPreprocessorConfig(dir string) (*PreprocessorConfig, error) {
	path := filepath.Join(dir, "preprocessor_config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &HuggingFaceError{Op: "load_preprocessor", Path: path, Err: ErrPreprocessorNotFound}
		}
		return nil, &HuggingFaceError{Op: "load_preprocessor", Path: path, Err: err}
	}
	return ParsePreprocessorConfig(data)
}

// Normalization gibt mean/std zurueck. Ohne Angaben gilt die ViT-Normalisierung [-1, 1].
func (p *PreprocessorConfig) Normalization() vision.Normalization {
	if p == nil {
		return vision.Standard
	}
	if p.DoNormalize != nil && !*p.DoNormalize {
		return vision.NoNorm
	}

	norm := vision.Standard
	if len(p.ImageMean) == 3 {
		copy(norm.Mean[:], p.ImageMean)
	}
	if len(p.ImageStd) == 3 {
		copy(norm.Std[:], p.ImageStd)
	}
	return norm
}

// ImageSize gibt die Eingabegroesse zurueck, crop_size hat Vorrang vor size
func (p *PreprocessorConfig) ImageSize() int {
	if p == nil {
		return 0
	}
	if s := p.CropSize.side(); s > 0 {
		return s
	}
	return p.Size.side()
}

// Import liest config.json und optional preprocessor_config.json aus dir
func Import(dir string) (model.Config, vision.Normalization, []string, error) {
	info, err := LoadConfig(dir)
	if err != nil {
		return model.Config{}, vision.Normalization{}, nil, err
	}

	c, err := ToModelConfig(info)
	if err != nil {
		return model.Config{}, vision.Normalization{}, nil, err
	}

	pre, err := LoadPreprocessorConfig(dir)
	switch {
	case errors.Is(err, ErrPreprocessorNotFound):
		pre = nil
	case err != nil:
		return model.Config{}, vision.Normalization{}, nil, err
	}

	if size := pre.ImageSize(); size > 0 && size != c.ImageSize {
		return model.Config{}, vision.Normalization{}, nil, &HuggingFaceError{Op: "import", Path: dir, Err: &model.ConfigError{
			Field: "image_size", Value: size,
			Reason: fmt.Sprintf("preprocessor size differs from config.json image_size %d", c.ImageSize),
		}}
	}

	return c, pre.Normalization(), info.Labels(), nil
}
