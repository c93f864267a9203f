// tensor_nn.go - Neuronale Netzwerk Operationen
// Enthaelt: Softmax, LayerNorm, GELU, Dropout

package cpu

import (
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ollama/vit/ml"
)

// Softmax berechnet Softmax ueber die letzte Dimension.
// Vor der Exponentiation wird das Zeilen-Maximum abgezogen.
func (t *Tensor) Softmax(ctx ml.Context) ml.Tensor {
	cols := t.shape[len(t.shape)-1]
	out := make([]float32, len(t.data))

	t.b.forRows(len(t.data)/cols, func(r int) {
		row := t.data[r*cols : (r+1)*cols]
		dst := out[r*cols : (r+1)*cols]

		maxv := float32(math.Inf(-1))
		for _, v := range row {
			maxv = max(maxv, v)
		}

		var sum float64
		for i, v := range row {
			e := math.Exp(float64(v - maxv))
			dst[i] = float32(e)
			sum += e
		}

		for i := range dst {
			dst[i] = float32(float64(dst[i]) / sum)
		}
	})

	return newTensor(t.b, t.dtype, t.shape, out)
}

// LayerNorm normalisiert ueber die letzte Dimension; weight und bias sind optional
func (t *Tensor) LayerNorm(ctx ml.Context, weight, bias ml.Tensor, eps float32) ml.Tensor {
	cols := t.shape[len(t.shape)-1]
	out := make([]float32, len(t.data))

	var w, b []float32
	if weight != nil {
		w = weight.(*Tensor).data
	}
	if bias != nil {
		b = bias.(*Tensor).data
	}

	t.b.forRows(len(t.data)/cols, func(r int) {
		row := t.data[r*cols : (r+1)*cols]
		dst := out[r*cols : (r+1)*cols]

		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(cols)

		var variance float64
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(cols)

		inv := 1 / math.Sqrt(variance+float64(eps))
		for i, v := range row {
			y := float32((float64(v) - mean) * inv)
			if w != nil {
				y *= w[i]
			}
			if b != nil {
				y += b[i]
			}
			dst[i] = y
		}
	})

	return newTensor(t.b, t.dtype, t.shape, out)
}

// GELU berechnet die exakte GELU-Aktivierung 0.5·x·(1+erf(x/√2))
func (t *Tensor) GELU(ctx ml.Context) ml.Tensor {
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		x := float64(v)
		out[i] = float32(0.5 * x * (1 + math.Erf(x/math.Sqrt2)))
	}
	return newTensor(t.b, t.dtype, t.shape, out)
}

// Dropout ist im Inferenz-Modus die Identitaet (als Kopie)
func (t *Tensor) Dropout(ctx ml.Context, p float32) ml.Tensor {
	c := ctx.(*Context)
	if !c.training || p <= 0 {
		return newTensor(t.b, t.dtype, t.shape, slices.Clone(t.data))
	}

	out := make([]float32, len(t.data))
	if p >= 1 {
		return newTensor(t.b, t.dtype, t.shape, out)
	}

	keep := 1 / (1 - p)
	for i, v := range t.data {
		if c.rng.Float32() >= p {
			out[i] = v * keep
		}
	}
	return newTensor(t.b, t.dtype, t.shape, out)
}

// forRows verteilt fn ueber rows Zeilen auf die Worker des Backends
func (b *Backend) forRows(rows int, fn func(r int)) {
	if b.threads <= 1 || rows < 2*b.threads {
		for r := range rows {
			fn(r)
		}
		return
	}

	chunk := (rows + b.threads - 1) / b.threads
	var g errgroup.Group
	for start := 0; start < rows; start += chunk {
		end := min(start+chunk, rows)
		g.Go(func() error {
			for r := start; r < end; r++ {
				fn(r)
			}
			return nil
		})
	}
	_ = g.Wait()
}
