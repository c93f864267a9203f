package nn

import "github.com/ollama/vit/ml"

// Linear ist eine affine Abbildung mit Weight (out, in) und optionalem Bias (out)
type Linear struct {
	Weight ml.Tensor
	Bias   ml.Tensor
}

func (m *Linear) Forward(ctx ml.Context, t ml.Tensor) ml.Tensor {
	t = t.Mulmat(ctx, m.Weight)
	if m.Bias != nil {
		t = t.Add(ctx, m.Bias)
	}

	return t
}

// Params gibt die Parameter in der Reihenfolge weight, bias zurueck
func (m *Linear) Params() []Param {
	params := []Param{{Name: "weight", Tensor: m.Weight}}
	if m.Bias != nil {
		params = append(params, Param{Name: "bias", Tensor: m.Bias})
	}
	return params
}
