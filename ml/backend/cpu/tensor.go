// tensor.go - Tensor-Struktur und Basis-Methoden
// Enthaelt: Tensor struct, Shape, Floats, DType, Cast, LogValue

package cpu

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/ollama/vit/ml"
)

// Tensor ist ein dichter row-major float32-Tensor
type Tensor struct {
	b     *Backend
	dtype ml.DType
	shape []int
	data  []float32
}

func newTensor(b *Backend, dtype ml.DType, shape []int, data []float32) *Tensor {
	return &Tensor{b: b, dtype: dtype, shape: slices.Clone(shape), data: data}
}

// LogValue gibt den Tensor als slog-Wert zurueck
func (t *Tensor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", t.dtype.String()),
		slog.Any("shape", t.shape),
	)
}

// Dim gibt die Groesse einer Dimension zurueck
func (t *Tensor) Dim(n int) int {
	return t.shape[n]
}

// Shape gibt eine Kopie der Form zurueck
func (t *Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

// DType gibt den Datentyp zurueck
func (t *Tensor) DType() ml.DType {
	return t.dtype
}

// Len gibt die Anzahl Elemente zurueck
func (t *Tensor) Len() int {
	return len(t.data)
}

// Floats gibt eine Kopie der Daten zurueck
func (t *Tensor) Floats() []float32 {
	return slices.Clone(t.data)
}

// FromFloats ueberschreibt die Daten mit s
func (t *Tensor) FromFloats(s []float32) {
	if len(s) != len(t.data) {
		panic(fmt.Errorf("cpu: %d values do not fit shape %v", len(s), t.shape))
	}
	copy(t.data, roundTo(t.dtype, slices.Clone(s)))
}

// Cast rundet die Werte auf die Praezision von dtype
func (t *Tensor) Cast(ctx ml.Context, dtype ml.DType) ml.Tensor {
	return newTensor(t.b, dtype, t.shape, roundTo(dtype, slices.Clone(t.data)))
}

// roundTo rundet data in-place auf die Praezision von dtype
func roundTo(dtype ml.DType, data []float32) []float32 {
	switch dtype {
	case ml.DTypeF16:
		for i, v := range data {
			data[i] = float16.Fromfloat32(v).Float32()
		}
	case ml.DTypeBF16:
		copy(data, bfloat16.DecodeFloat32(bfloat16.EncodeFloat32(data)))
	}
	return data
}

// numel gibt das Produkt der Dimensionen zurueck
func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// strides gibt die row-major Strides einer Shape zurueck
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}
