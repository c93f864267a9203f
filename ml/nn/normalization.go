package nn

import "github.com/ollama/vit/ml"

type LayerNorm struct {
	Weight ml.Tensor
	Bias   ml.Tensor
	Eps    float32
}

func (m *LayerNorm) Forward(ctx ml.Context, t ml.Tensor) ml.Tensor {
	return t.LayerNorm(ctx, m.Weight, m.Bias, m.Eps)
}

// Params gibt die Parameter in der Reihenfolge weight, bias zurueck
func (m *LayerNorm) Params() []Param {
	var params []Param
	if m.Weight != nil {
		params = append(params, Param{Name: "weight", Tensor: m.Weight})
	}
	if m.Bias != nil {
		params = append(params, Param{Name: "bias", Tensor: m.Bias})
	}
	return params
}
