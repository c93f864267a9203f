// tensor_arithmetic.go - Elementweise Arithmetik
// Enthaelt: Add, Mul, Scale mit Suffix-Broadcasting

package cpu

import (
	"fmt"
	"slices"

	"github.com/ollama/vit/ml"
)

// Add addiert t2 elementweise, t2 darf ein Suffix der Shape von t haben
func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.broadcast("add", t2, func(a, b float32) float32 { return a + b })
}

// Mul multipliziert t2 elementweise, t2 darf ein Suffix der Shape von t haben
func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.broadcast("mul", t2, func(a, b float32) float32 { return a * b })
}

// Scale multipliziert alle Elemente mit s
func (t *Tensor) Scale(ctx ml.Context, s float64) ml.Tensor {
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = v * float32(s)
	}
	return newTensor(t.b, t.dtype, t.shape, out)
}

// broadcast wendet fn elementweise an und wiederholt t2 ueber die fuehrenden Dimensionen
func (t *Tensor) broadcast(op string, t2 ml.Tensor, fn func(a, b float32) float32) *Tensor {
	other := t2.(*Tensor)
	if len(other.shape) > len(t.shape) || !slices.Equal(other.shape, t.shape[len(t.shape)-len(other.shape):]) {
		panic(fmt.Errorf("cpu: %s: shape %v does not broadcast to %v", op, other.shape, t.shape))
	}

	out := make([]float32, len(t.data))
	n := len(other.data)
	for i, v := range t.data {
		out[i] = fn(v, other.data[i%n])
	}
	return newTensor(t.b, t.dtype, t.shape, out)
}
