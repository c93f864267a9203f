package vit

import (
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
)

// ============================================================================
// Encoder Layers - Attention, MLP und Encoder-Block
// ============================================================================
//
// Dieses Modul enthaelt:
// - VisionSelfAttention: Multi-Head Self-Attention
// - VisionMLP: Expansion, GELU, Kontraktion
// - EncoderBlock: Pre-Norm Block mit zwei Residual-Verbindungen

// VisionSelfAttention implementiert Multi-Head Self-Attention
type VisionSelfAttention struct {
	Query  *nn.Linear
	Key    *nn.Linear
	Value  *nn.Linear
	Output *nn.Linear
}

func newVisionSelfAttention(wi *initializer, opts *VisionModelOptions) *VisionSelfAttention {
	return &VisionSelfAttention{
		Query:  wi.linear(opts.hiddenSize, opts.attnDim()),
		Key:    wi.linear(opts.hiddenSize, opts.attnDim()),
		Value:  wi.linear(opts.hiddenSize, opts.attnDim()),
		Output: wi.linear(opts.attnDim(), opts.hiddenSize),
	}
}

// Forward fuehrt die Self-Attention Berechnung durch: (B, N, D) -> (B, N, D)
func (sa *VisionSelfAttention) Forward(ctx ml.Context, hiddenStates ml.Tensor, opts *VisionModelOptions) ml.Tensor {
	batch, seq := hiddenStates.Dim(0), hiddenStates.Dim(1)

	// (B, N, H·d) -> (B, H, N, d)
	query := sa.Query.Forward(ctx, hiddenStates).Reshape(ctx, batch, seq, opts.numHeads, opts.headDim).Permute(ctx, 0, 2, 1, 3)
	key := sa.Key.Forward(ctx, hiddenStates).Reshape(ctx, batch, seq, opts.numHeads, opts.headDim).Permute(ctx, 0, 2, 1, 3)
	value := sa.Value.Forward(ctx, hiddenStates).Reshape(ctx, batch, seq, opts.numHeads, opts.headDim).Permute(ctx, 0, 2, 1, 3)

	attention := nn.Attention(ctx, query, key, value, opts.scale())

	// (B, H, N, d) -> (B, N, H·d)
	attention = attention.Permute(ctx, 0, 2, 1, 3).Reshape(ctx, batch, seq, opts.attnDim())
	return sa.Output.Forward(ctx, attention)
}

func (sa *VisionSelfAttention) Params() []nn.Param {
	var params []nn.Param
	params = append(params, nn.Prefixed("attn_q", sa.Query.Params()...)...)
	params = append(params, nn.Prefixed("attn_k", sa.Key.Params()...)...)
	params = append(params, nn.Prefixed("attn_v", sa.Value.Params()...)...)
	params = append(params, nn.Prefixed("attn_out", sa.Output.Params()...)...)
	return params
}

// VisionMLP implementiert das Feed-Forward-Netz (Up -> GELU -> Down)
type VisionMLP struct {
	Up   *nn.Linear
	Down *nn.Linear
}

func newVisionMLP(wi *initializer, opts *VisionModelOptions) *VisionMLP {
	return &VisionMLP{
		Up:   wi.linear(opts.hiddenSize, opts.mlpDim),
		Down: wi.linear(opts.mlpDim, opts.hiddenSize),
	}
}

func (mlp *VisionMLP) Forward(ctx ml.Context, hiddenStates ml.Tensor) ml.Tensor {
	hiddenStates = mlp.Up.Forward(ctx, hiddenStates).GELU(ctx)
	return mlp.Down.Forward(ctx, hiddenStates)
}

func (mlp *VisionMLP) Params() []nn.Param {
	return append(nn.Prefixed("ffn_up", mlp.Up.Params()...), nn.Prefixed("ffn_down", mlp.Down.Params()...)...)
}

// EncoderBlock kombiniert Attention und MLP zu einem Transformer-Block
type EncoderBlock struct {
	Norm1         *nn.LayerNorm
	SelfAttention *VisionSelfAttention
	Norm2         *nn.LayerNorm
	MLP           *VisionMLP
}

func newEncoderBlock(wi *initializer, opts *VisionModelOptions) *EncoderBlock {
	return &EncoderBlock{
		Norm1:         wi.layerNorm(opts.hiddenSize, opts.eps),
		SelfAttention: newVisionSelfAttention(wi, opts),
		Norm2:         wi.layerNorm(opts.hiddenSize, opts.eps),
		MLP:           newVisionMLP(wi, opts),
	}
}

// Forward fuehrt einen Encoder-Block durch (Norm -> Attention -> Add -> Norm -> MLP -> Add).
// Dropout wirkt nach beiden Ausgabe-Projektionen und nur im Trainings-Modus.
func (e *EncoderBlock) Forward(ctx ml.Context, hiddenStates ml.Tensor, opts *VisionModelOptions) (ml.Tensor, error) {
	if err := model.CheckShape("encoder_block", hiddenStates.Shape(), -1, -1, opts.hiddenSize); err != nil {
		return nil, err
	}

	// Attention mit Residual-Verbindung
	residual := hiddenStates
	hiddenStates = e.Norm1.Forward(ctx, hiddenStates)
	hiddenStates = e.SelfAttention.Forward(ctx, hiddenStates, opts)
	hiddenStates = hiddenStates.Dropout(ctx, opts.dropout)
	hiddenStates = hiddenStates.Add(ctx, residual)

	// MLP mit Residual-Verbindung
	residual = hiddenStates
	hiddenStates = e.Norm2.Forward(ctx, hiddenStates)
	hiddenStates = e.MLP.Forward(ctx, hiddenStates)
	hiddenStates = hiddenStates.Dropout(ctx, opts.dropout)
	return hiddenStates.Add(ctx, residual), nil
}

// Params listet ln1, Attention, ln2 und MLP in dieser Reihenfolge
func (e *EncoderBlock) Params() []nn.Param {
	var params []nn.Param
	params = append(params, nn.Prefixed("ln1", e.Norm1.Params()...)...)
	params = append(params, e.SelfAttention.Params()...)
	params = append(params, nn.Prefixed("ln2", e.Norm2.Params()...)...)
	params = append(params, e.MLP.Params()...)
	return params
}
