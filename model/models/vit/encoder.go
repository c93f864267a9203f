package vit

import (
	"fmt"

	"github.com/ollama/vit/logutil"
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
)

// Encoder ist eine feste, geordnete Folge von Encoder-Blocks.
// Die Tiefe wird bei der Konstruktion festgelegt.
type Encoder struct {
	layers []*EncoderBlock
}

func newEncoder(wi *initializer, depth int, opts *VisionModelOptions) *Encoder {
	layers := make([]*EncoderBlock, depth)
	for i := range layers {
		layers[i] = newEncoderBlock(wi, opts)
	}
	return &Encoder{layers: layers}
}

// Depth gibt die Anzahl Blocks zurueck
func (e *Encoder) Depth() int {
	return len(e.layers)
}

// Layer gibt den Block an Position i zurueck
func (e *Encoder) Layer(i int) *EncoderBlock {
	return e.layers[i]
}

// Forward wendet alle Blocks nacheinander an
func (e *Encoder) Forward(ctx ml.Context, hiddenStates ml.Tensor, opts *VisionModelOptions) (ml.Tensor, error) {
	for i, layer := range e.layers {
		var err error
		hiddenStates, err = layer.Forward(ctx, hiddenStates, opts)
		if err != nil {
			return nil, fmt.Errorf("blk.%d: %w", i, err)
		}

		logutil.Trace("encoder block", "index", i, "shape", hiddenStates.Shape())
	}

	return hiddenStates, nil
}

// Params listet die Blocks in Stapel-Reihenfolge als blk.<i>.*
func (e *Encoder) Params() []nn.Param {
	var params []nn.Param
	for i, layer := range e.layers {
		params = append(params, nn.Prefixed(fmt.Sprintf("blk.%d", i), layer.Params()...)...)
	}
	return params
}
