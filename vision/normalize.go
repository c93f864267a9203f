// MODUL: normalize
// ZWECK: Normalisierung und Tensor-Konvertierung fuer den Vision Transformer
// INPUT: ImageInput, Normalisierungs-Parameter (mean, std)
// OUTPUT: (B, C, H, W) Tensor
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: ml, model
// HINWEISE: C=3 ist RGB, C=1 ist Luma (ITU-R BT.601)

package vision

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/model"
)

// Normalization enthaelt Mittelwert und Standardabweichung pro RGB-Kanal
type Normalization struct {
	Mean [3]float32 `json:"image_mean"`
	Std  [3]float32 `json:"image_std"`
}

var (
	// ImageNet Default (ResNet, ViT aus timm)
	ImageNet = Normalization{
		Mean: [3]float32{0.485, 0.456, 0.406},
		Std:  [3]float32{0.229, 0.224, 0.225},
	}

	// Standard normalisiert auf [-1, 1] (Hugging Face ViT)
	Standard = Normalization{
		Mean: [3]float32{0.5, 0.5, 0.5},
		Std:  [3]float32{0.5, 0.5, 0.5},
	}

	// NoNorm skaliert nur auf [0, 1]
	NoNorm = Normalization{
		Mean: [3]float32{0, 0, 0},
		Std:  [3]float32{1, 1, 1},
	}
)

// ErrUnsupportedChannels wird fuer Kanalzahlen ausser 1 und 3 zurueckgegeben
var ErrUnsupportedChannels = errors.New("vision: only 1 or 3 channels supported")

// gray gibt Mittelwert und Standardabweichung fuer ein Luma-Bild zurueck
func (n Normalization) gray() (float32, float32) {
	return (n.Mean[0] + n.Mean[1] + n.Mean[2]) / 3, (n.Std[0] + n.Std[1] + n.Std[2]) / 3
}

// Preprocessor bringt Bilder auf die Eingabeform eines Modells
type Preprocessor struct {
	Size       int
	Channels   int
	Norm       Normalization
	Background color.Color
}

// NewPreprocessor erstellt einen Preprocessor fuer eine Modell-Konfiguration
func NewPreprocessor(c model.Config, norm Normalization) (*Preprocessor, error) {
	if c.Channels != 1 && c.Channels != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, c.Channels)
	}
	return &Preprocessor{
		Size:       c.ImageSize,
		Channels:   c.Channels,
		Norm:       norm,
		Background: color.White,
	}, nil
}

// Pixels gibt ein Bild normalisiert im CHW Layout zurueck.
// Das Bild wird zuvor auf Size x Size gebracht.
func (p *Preprocessor) Pixels(img *ImageInput) ([]float32, error) {
	img, err := img.Composite(p.Background).Square(p.Size)
	if err != nil {
		return nil, err
	}

	plane := p.Size * p.Size
	out := make([]float32, p.Channels*plane)

	for y := range p.Size {
		for x := range p.Size {
			c := img.Image.RGBAAt(x, y)
			r, g, b := float32(c.R)/255, float32(c.G)/255, float32(c.B)/255

			i := y*p.Size + x
			switch p.Channels {
			case 1:
				mean, std := p.Norm.gray()
				out[i] = (0.299*r + 0.587*g + 0.114*b - mean) / std
			case 3:
				out[i] = (r - p.Norm.Mean[0]) / p.Norm.Std[0]
				out[plane+i] = (g - p.Norm.Mean[1]) / p.Norm.Std[1]
				out[2*plane+i] = (b - p.Norm.Mean[2]) / p.Norm.Std[2]
			default:
				return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, p.Channels)
			}
		}
	}

	return out, nil
}

// Tensor stapelt die Bilder zu einem (B, C, Size, Size) Tensor
func (p *Preprocessor) Tensor(ctx ml.Context, images ...*ImageInput) (ml.Tensor, error) {
	if len(images) == 0 {
		return nil, errors.New("vision: no images")
	}

	per := p.Channels * p.Size * p.Size
	data := make([]float32, 0, len(images)*per)
	for i, img := range images {
		pixels, err := p.Pixels(img)
		if err != nil {
			return nil, fmt.Errorf("bild %d: %w", i, err)
		}
		data = append(data, pixels...)
	}

	return ctx.FromFloats(data, len(images), p.Channels, p.Size, p.Size), nil
}

// Decode dekodiert Bild-Bytes und stapelt sie zu einem Tensor
func (p *Preprocessor) Decode(ctx ml.Context, blobs ...[]byte) (ml.Tensor, error) {
	images := make([]*ImageInput, len(blobs))
	for i, data := range blobs {
		img, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("bild %d: %w", i, err)
		}
		images[i] = img
	}
	return p.Tensor(ctx, images...)
}
