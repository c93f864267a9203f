package vit

import (
	"math"

	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
)

// PositionalEncoding addiert pro Position einen Vektor auf die Sequenz.
// Die Tabelle hat eine Zeile pro Patch plus eine fuer das Aggregat-Token.
type PositionalEncoding struct {
	Table ml.Tensor

	// learned meldet, ob Table ein Parameter ist
	learned bool
}

func newPositionalEncoding(wi *initializer, rows int, opts *VisionModelOptions) *PositionalEncoding {
	if opts.positional == model.PositionalSinusoidal {
		return &PositionalEncoding{Table: wi.ctx.FromFloats(sinusoidalTable(rows, opts.hiddenSize), rows, opts.hiddenSize)}
	}

	return &PositionalEncoding{
		Table:   wi.normal(0.02, rows, opts.hiddenSize),
		learned: true,
	}
}

// Forward addiert die Tabelle ueber alle Batch-Elemente
func (pe *PositionalEncoding) Forward(ctx ml.Context, hiddenStates ml.Tensor) (ml.Tensor, error) {
	rows, dim := pe.Table.Dim(0), pe.Table.Dim(1)
	if err := model.CheckShape("positional_encoding", hiddenStates.Shape(), -1, rows, dim); err != nil {
		return nil, err
	}

	return hiddenStates.Add(ctx, pe.Table), nil
}

// Params gibt die Tabelle nur zurueck, wenn sie gelernt wird
func (pe *PositionalEncoding) Params() []nn.Param {
	if !pe.learned {
		return nil
	}
	return []nn.Param{{Tensor: pe.Table}}
}

// sinusoidalTable berechnet die feste Sinus/Kosinus-Tabelle (rows, dim)
func sinusoidalTable(rows, dim int) []float32 {
	table := make([]float32, rows*dim)
	for pos := range rows {
		for i := 0; i < dim; i += 2 {
			freq := math.Pow(10000, -float64(i)/float64(dim))
			table[pos*dim+i] = float32(math.Sin(float64(pos) * freq))
			if i+1 < dim {
				table[pos*dim+i+1] = float32(math.Cos(float64(pos) * freq))
			}
		}
	}
	return table
}
