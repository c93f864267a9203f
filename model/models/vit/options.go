package vit

import (
	"math"

	"github.com/ollama/vit/model"
)

// VisionModelOptions enthaelt die aus der Konfiguration abgeleiteten Groessen
type VisionModelOptions struct {
	hiddenSize  int
	numHeads    int
	headDim     int
	mlpDim      int
	patchSize   int
	imageSize   int
	numChannels int
	numPatches  int
	numClasses  int
	eps         float32
	dropout     float32
	pooling     model.Pooling
	positional  model.Positional
}

func newVisionModelOptions(c model.Config) *VisionModelOptions {
	return &VisionModelOptions{
		hiddenSize:  c.EmbedDim,
		numHeads:    c.NumHeads,
		headDim:     c.HeadDim,
		mlpDim:      c.MLPDim,
		patchSize:   c.PatchSize,
		imageSize:   c.ImageSize,
		numChannels: c.Channels,
		numPatches:  c.NumPatches(),
		numClasses:  c.NumClasses,
		eps:         c.LayerNormEps,
		dropout:     c.Dropout,
		pooling:     c.Pooling,
		positional:  c.Positional,
	}
}

// attnDim gibt die Breite heads·head_dim zurueck
func (o *VisionModelOptions) attnDim() int {
	return o.numHeads * o.headDim
}

// scale gibt den Attention-Skalierungsfaktor 1/√head_dim zurueck
func (o *VisionModelOptions) scale() float64 {
	return 1.0 / math.Sqrt(float64(o.headDim))
}
