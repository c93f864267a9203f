// context.go - Context-Struktur und Tensor-Erzeugung
// Enthaelt: Context struct, Empty(), Zeros(), FromFloats(), Training(), Close()

package cpu

import (
	"fmt"
	"math/rand/v2"

	"github.com/ollama/vit/ml"
)

// Context ist ein Berechnungskontext des CPU-Backends
type Context struct {
	b *Backend

	// training aktiviert Dropout
	training bool

	// rng liefert die Dropout-Masken dieses Kontexts
	rng *rand.Rand
}

// Empty erzeugt einen Tensor mit der gegebenen Shape
func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return c.Zeros(dtype, shape...)
}

// Zeros erzeugt einen mit Nullen gefuellten Tensor
func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	if dtype == ml.DTypeOther {
		dtype = ml.DTypeF32
	}
	return newTensor(c.b, dtype, shape, make([]float32, numel(shape)))
}

// FromFloats erzeugt einen Tensor aus einer Kopie von s
func (c *Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	if len(s) != numel(shape) {
		panic(fmt.Errorf("cpu: %d values do not fit shape %v", len(s), shape))
	}

	data := make([]float32, len(s))
	copy(data, s)
	return newTensor(c.b, ml.DTypeF32, shape, data)
}

// Training meldet, ob Dropout aktiv ist
func (c *Context) Training() bool {
	return c.training
}

// Close gibt den Kontext frei
func (c *Context) Close() {}
