package vit

import (
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
)

// PatchEmbedding zerlegt Bilder in PxP-Patches und projiziert sie auf hiddenSize
type PatchEmbedding struct {
	Proj *nn.Linear
}

func newPatchEmbedding(wi *initializer, opts *VisionModelOptions) *PatchEmbedding {
	return &PatchEmbedding{
		Proj: wi.linear(opts.numChannels*opts.patchSize*opts.patchSize, opts.hiddenSize),
	}
}

// Forward bildet (B, C, H, W) auf (B, N, hiddenSize) ab.
// Patches werden kanalweise geflacht (C, P, P), die Patch-Reihenfolge ist zeilenweise.
func (pe *PatchEmbedding) Forward(ctx ml.Context, pixelValues ml.Tensor, opts *VisionModelOptions) (ml.Tensor, error) {
	shape := pixelValues.Shape()
	if len(shape) != 4 {
		return nil, &model.ShapeError{Op: "patch_embedding", Want: []int{-1, opts.numChannels, opts.imageSize, opts.imageSize}, Got: shape, Reason: "expected (batch, channels, height, width)"}
	}

	batch, channels, height, width := shape[0], shape[1], shape[2], shape[3]
	want := []int{-1, opts.numChannels, opts.imageSize, opts.imageSize}
	switch {
	case channels != opts.numChannels:
		return nil, &model.ShapeError{Op: "patch_embedding", Want: want, Got: shape, Reason: "channel count differs from configuration"}
	case height%opts.patchSize != 0 || width%opts.patchSize != 0:
		return nil, &model.ShapeError{Op: "patch_embedding", Want: want, Got: shape, Reason: "height and width must be multiples of the patch size"}
	case height != opts.imageSize || width != opts.imageSize:
		return nil, &model.ShapeError{Op: "patch_embedding", Want: want, Got: shape, Reason: "image size differs from configuration"}
	}

	p := opts.patchSize
	gridH, gridW := height/p, width/p

	// (B, C, gh, P, gw, P) -> (B, gh, gw, C, P, P) -> (B, N, C·P·P)
	patches := pixelValues.Reshape(ctx, batch, channels, gridH, p, gridW, p)
	patches = patches.Permute(ctx, 0, 2, 4, 1, 3, 5)
	patches = patches.Reshape(ctx, batch, gridH*gridW, channels*p*p)

	return pe.Proj.Forward(ctx, patches), nil
}

func (pe *PatchEmbedding) Params() []nn.Param {
	return nn.Prefixed("proj", pe.Proj.Params()...)
}
