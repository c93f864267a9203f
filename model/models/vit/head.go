package vit

import (
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
)

// ClassificationHead reduziert die Sequenz und projiziert auf Klassen-Logits
type ClassificationHead struct {
	Norm *nn.LayerNorm
	Proj *nn.Linear

	pooling model.Pooling
}

func newClassificationHead(wi *initializer, opts *VisionModelOptions) *ClassificationHead {
	return &ClassificationHead{
		Norm:    wi.layerNorm(opts.hiddenSize, opts.eps),
		Proj:    wi.linear(opts.hiddenSize, opts.numClasses),
		pooling: opts.pooling,
	}
}

// Forward bildet (B, N, D) auf rohe Logits (B, Klassen) ab, ohne Softmax
func (h *ClassificationHead) Forward(ctx ml.Context, hiddenStates ml.Tensor, opts *VisionModelOptions) (ml.Tensor, error) {
	if err := model.CheckShape("classification_head", hiddenStates.Shape(), -1, -1, opts.hiddenSize); err != nil {
		return nil, err
	}

	batch := hiddenStates.Dim(0)

	var pooled ml.Tensor
	switch h.pooling {
	case model.PoolingMean:
		pooled = hiddenStates.Mean(ctx, 1)
	default:
		pooled = hiddenStates.Slice(ctx, 1, 0, 1).Reshape(ctx, batch, opts.hiddenSize)
	}

	pooled = h.Norm.Forward(ctx, pooled)
	return h.Proj.Forward(ctx, pooled), nil
}

// Params listet Norm und Projektion
func (h *ClassificationHead) Params() []nn.Param {
	return append(nn.Prefixed("norm", h.Norm.Params()...), nn.Prefixed("proj", h.Proj.Params()...)...)
}
