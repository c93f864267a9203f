// tensor_matrix.go - Matrix-Operationen
// Enthaelt: Mulmat ueber gonum BLAS, parallel ueber fuehrende Dimensionen

package cpu

import (
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/ollama/vit/ml"
)

// Mulmat berechnet t · t2ᵀ ueber die letzten beiden Dimensionen
func (t *Tensor) Mulmat(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	other := t2.(*Tensor)
	if len(t.shape) < 2 || len(other.shape) < 2 {
		panic(fmt.Errorf("cpu: mulmat needs at least 2 dims, got %v and %v", t.shape, other.shape))
	}

	k := t.shape[len(t.shape)-1]
	if other.shape[len(other.shape)-1] != k {
		panic(fmt.Errorf("cpu: mulmat inner dims differ: %v and %v", t.shape, other.shape))
	}
	m := t.shape[len(t.shape)-2]
	n := other.shape[len(other.shape)-2]

	shape := slices.Clone(t.shape)
	shape[len(shape)-1] = n
	out := make([]float32, numel(shape))

	// Gewichtsmatrix: alle fuehrenden Zeilen in einem Aufruf
	if len(other.shape) == 2 {
		sgemmNT(len(t.data)/k, n, k, t.data, other.data, out)
		return newTensor(t.b, t.dtype, shape, out)
	}

	lead := t.shape[:len(t.shape)-2]
	if !slices.Equal(lead, other.shape[:len(other.shape)-2]) {
		panic(fmt.Errorf("cpu: mulmat batch dims differ: %v and %v", t.shape, other.shape))
	}

	var g errgroup.Group
	g.SetLimit(t.b.threads)
	for i := range numel(lead) {
		g.Go(func() error {
			sgemmNT(m, n, k,
				t.data[i*m*k:(i+1)*m*k],
				other.data[i*n*k:(i+1)*n*k],
				out[i*m*n:(i+1)*m*n])
			return nil
		})
	}
	_ = g.Wait()

	return newTensor(t.b, t.dtype, shape, out)
}

// sgemmNT berechnet c = a · bᵀ fuer a (m, k), b (n, k), c (m, n)
func sgemmNT(m, n, k int, a, b, c []float32) {
	if m == 0 || n == 0 {
		return
	}

	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: n, Cols: k, Stride: k, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}
