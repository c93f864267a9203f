package nn

import (
	"fmt"

	"github.com/ollama/vit/ml"
)

// Attention implements scaled dot-product attention.
//
// Parameters:
//   - ctx: Context for tensor operations
//   - query: Query tensor (Q) with shape [batch, heads, seq_q, head_dim]
//   - key: Key tensor (K) with shape [batch, heads, seq_k, head_dim]
//   - value: Value tensor (V) with shape [batch, heads, seq_k, head_dim]
//   - scale: Scaling factor, typically 1/√head_dim
//
// Returns:
//
//	Attention output with shape [batch, heads, seq_q, head_dim]
func Attention(ctx ml.Context, query, key, value ml.Tensor, scale float64) ml.Tensor {
	return AttentionWithScores(ctx, query, key, value, scale, nil)
}

// AttentionWithScores arbeitet wie Attention und ruft scores mit den
// Softmax-Gewichten [batch, heads, seq_q, seq_k] auf, falls gesetzt.
func AttentionWithScores(ctx ml.Context, query, key, value ml.Tensor, scale float64, scores func(ml.Tensor)) ml.Tensor {
	if len(query.Shape()) != 4 || len(key.Shape()) != 4 || len(value.Shape()) != 4 {
		panic(fmt.Errorf("attention needs 4d tensors, got q=%v k=%v v=%v", query.Shape(), key.Shape(), value.Shape()))
	}
	if key.Dim(2) != value.Dim(2) {
		panic(fmt.Errorf("key and value sequence lengths differ: %v vs %v", key.Shape(), value.Shape()))
	}

	kq := query.Mulmat(ctx, key)
	kq = kq.Scale(ctx, scale)
	kq = kq.Softmax(ctx)
	if scores != nil {
		scores(kq)
	}

	// (B, H, seq_k, d) -> (B, H, d, seq_k), damit Mulmat ueber seq_k kontrahiert
	v := value.Permute(ctx, 0, 1, 3, 2)
	return kq.Mulmat(ctx, v)
}
