package vit

import (
	"math"
	"math/rand/v2"

	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
)

// initializer erzeugt die Parameter-Tensoren eines Modells.
// Alle Zufallswerte stammen aus einem geseedeten Generator.
type initializer struct {
	ctx   ml.Context
	rng   *rand.Rand
	dtype ml.DType
}

func newInitializer(ctx ml.Context, seed uint64, dtype ml.DType) *initializer {
	return &initializer{
		ctx:   ctx,
		rng:   rand.New(rand.NewPCG(seed, seed+1)),
		dtype: dtype,
	}
}

func (i *initializer) tensor(data []float32, shape ...int) ml.Tensor {
	t := i.ctx.FromFloats(data, shape...)
	if i.dtype != ml.DTypeF32 {
		t = t.Cast(i.ctx, i.dtype)
	}
	return t
}

// uniform zieht Werte gleichverteilt aus [-bound, bound)
func (i *initializer) uniform(bound float64, shape ...int) ml.Tensor {
	data := make([]float32, nn.NumElements(shape))
	for j := range data {
		data[j] = float32((2*i.rng.Float64() - 1) * bound)
	}
	return i.tensor(data, shape...)
}

// normal zieht Werte aus N(0, std²)
func (i *initializer) normal(std float64, shape ...int) ml.Tensor {
	data := make([]float32, nn.NumElements(shape))
	for j := range data {
		data[j] = float32(i.rng.NormFloat64() * std)
	}
	return i.tensor(data, shape...)
}

func (i *initializer) constant(v float32, shape ...int) ml.Tensor {
	data := make([]float32, nn.NumElements(shape))
	for j := range data {
		data[j] = v
	}
	return i.tensor(data, shape...)
}

// linear erzeugt eine Linear-Schicht in -> out mit Gewichten in ±1/√in
func (i *initializer) linear(in, out int) *nn.Linear {
	bound := 1 / math.Sqrt(float64(in))
	return &nn.Linear{
		Weight: i.uniform(bound, out, in),
		Bias:   i.uniform(bound, out),
	}
}

func (i *initializer) layerNorm(dim int, eps float32) *nn.LayerNorm {
	return &nn.LayerNorm{
		Weight: i.constant(1, dim),
		Bias:   i.constant(0, dim),
		Eps:    eps,
	}
}
