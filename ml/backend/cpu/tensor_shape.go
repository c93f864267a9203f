// tensor_shape.go - Shape-Operationen
// Enthaelt: Reshape, Permute, Concat, Repeat, Slice, Mean

package cpu

import (
	"fmt"
	"slices"

	"github.com/ollama/vit/ml"
)

// Reshape gibt eine Kopie der Daten mit neuer Shape zurueck.
// FromFloats auf dem Ergebnis veraendert den Empfaenger nicht.
func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	if numel(shape) != len(t.data) {
		panic(fmt.Errorf("cpu: cannot reshape %v to %v", t.shape, shape))
	}
	return newTensor(t.b, t.dtype, shape, slices.Clone(t.data))
}

// Permute ordnet die Dimensionen um und kopiert in ein zusammenhaengendes Layout
func (t *Tensor) Permute(ctx ml.Context, order ...int) ml.Tensor {
	n := len(t.shape)
	if len(order) != n {
		panic(fmt.Errorf("cpu: permute order %v does not match %v", order, t.shape))
	}

	shape := make([]int, n)
	for i, o := range order {
		shape[i] = t.shape[o]
	}

	src := strides(t.shape)
	out := make([]float32, len(t.data))
	idx := make([]int, n)
	for i := range out {
		off := 0
		for d := range n {
			off += idx[d] * src[order[d]]
		}
		out[i] = t.data[off]

		for d := n - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}

	return newTensor(t.b, t.dtype, shape, out)
}

// Concat haengt t2 entlang dim an t an
func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	other := t2.(*Tensor)
	if len(other.shape) != len(t.shape) ||
		!slices.Equal(t.shape[:dim], other.shape[:dim]) ||
		!slices.Equal(t.shape[dim+1:], other.shape[dim+1:]) {
		panic(fmt.Errorf("cpu: cannot concat %v and %v along %d", t.shape, other.shape, dim))
	}

	shape := slices.Clone(t.shape)
	shape[dim] += other.shape[dim]

	outer := numel(t.shape[:dim])
	a := numel(t.shape[dim:])
	b := numel(other.shape[dim:])
	out := make([]float32, outer*(a+b))
	for o := range outer {
		copy(out[o*(a+b):], t.data[o*a:(o+1)*a])
		copy(out[o*(a+b)+a:], other.data[o*b:(o+1)*b])
	}

	return newTensor(t.b, t.dtype, shape, out)
}

// Repeat wiederholt den Tensor n-mal entlang dim
func (t *Tensor) Repeat(ctx ml.Context, dim, n int) ml.Tensor {
	shape := slices.Clone(t.shape)
	shape[dim] *= n

	outer := numel(t.shape[:dim])
	inner := numel(t.shape[dim:])
	out := make([]float32, outer*inner*n)
	for o := range outer {
		for r := range n {
			copy(out[(o*n+r)*inner:], t.data[o*inner:(o+1)*inner])
		}
	}

	return newTensor(t.b, t.dtype, shape, out)
}

// Slice schneidet den Bereich [low, high) entlang dim aus
func (t *Tensor) Slice(ctx ml.Context, dim, low, high int) ml.Tensor {
	if low < 0 || high > t.shape[dim] || low >= high {
		panic(fmt.Errorf("cpu: slice [%d, %d) out of range for dim %d of %v", low, high, dim, t.shape))
	}

	shape := slices.Clone(t.shape)
	shape[dim] = high - low

	outer := numel(t.shape[:dim])
	inner := numel(t.shape[dim+1:])
	size := t.shape[dim]
	width := (high - low) * inner
	out := make([]float32, outer*width)
	for o := range outer {
		copy(out[o*width:], t.data[(o*size+low)*inner:(o*size+high)*inner])
	}

	return newTensor(t.b, t.dtype, shape, out)
}

// Mean mittelt ueber dim und entfernt die Dimension
func (t *Tensor) Mean(ctx ml.Context, dim int) ml.Tensor {
	shape := slices.Delete(slices.Clone(t.shape), dim, dim+1)

	outer := numel(t.shape[:dim])
	inner := numel(t.shape[dim+1:])
	size := t.shape[dim]
	out := make([]float32, outer*inner)
	for o := range outer {
		for i := range inner {
			var sum float64
			for s := range size {
				sum += float64(t.data[(o*size+s)*inner+i])
			}
			out[o*inner+i] = float32(sum / float64(size))
		}
	}

	return newTensor(t.b, t.dtype, shape, out)
}
