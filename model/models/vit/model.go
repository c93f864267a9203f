// Package vit implementiert einen Vision Transformer fuer Bildklassifikation.
//
// Ablauf: PatchEmbedding -> Aggregat-Token (optional) -> PositionalEncoding
// -> Encoder -> ClassificationHead. Die Parameter-Registry wird bei der
// Konstruktion aufgebaut und danach nicht mehr veraendert.
package vit

import (
	"fmt"

	"github.com/ollama/vit/logutil"
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
)

// Model ist ein Vision Transformer mit Klassifikationskopf
type Model struct {
	model.Base

	PatchEmbedding *PatchEmbedding
	ClassToken     ml.Tensor
	Position       *PositionalEncoding
	Encoder        *Encoder
	Head           *ClassificationHead

	*VisionModelOptions

	params *nn.Registry
}

// New erzeugt ein Modell mit zufaelliger Initialisierung
func New(b ml.Backend, c model.Config, o model.Options) (model.Model, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c = c.WithDefaults()

	opts := newVisionModelOptions(c)

	ctx := b.NewContext(ml.ContextParams{})
	defer ctx.Close()
	wi := newInitializer(ctx, o.Seed, o.WeightType)

	m := &Model{
		Base:               model.NewBase(b, c),
		PatchEmbedding:     newPatchEmbedding(wi, opts),
		VisionModelOptions: opts,
	}

	if c.HasClassToken() {
		m.ClassToken = wi.normal(0.02, 1, 1, opts.hiddenSize)
	}
	m.Position = newPositionalEncoding(wi, c.SeqLen(), opts)
	m.Encoder = newEncoder(wi, c.Depth, opts)
	m.Head = newClassificationHead(wi, opts)

	params, err := m.buildRegistry()
	if err != nil {
		return nil, err
	}
	m.params = params

	return m, nil
}

// buildRegistry registriert alle Parameter in Konstruktionsreihenfolge
func (m *Model) buildRegistry() (*nn.Registry, error) {
	r := nn.NewRegistry()

	if err := r.Register("patch_embd", m.PatchEmbedding.Params()...); err != nil {
		return nil, err
	}
	if m.ClassToken != nil {
		if err := r.Register("cls_token", nn.Param{Tensor: m.ClassToken}); err != nil {
			return nil, err
		}
	}
	if err := r.Register("position_embd", m.Position.Params()...); err != nil {
		return nil, err
	}
	if err := r.Register("", m.Encoder.Params()...); err != nil {
		return nil, err
	}
	if err := r.Register("head", m.Head.Params()...); err != nil {
		return nil, err
	}

	return r, nil
}

// Forward bildet einen Bild-Batch (B, C, H, W) auf Logits (B, Klassen) ab.
// Shape-Fehler betreffen nur diesen Aufruf.
func (m *Model) Forward(ctx ml.Context, pixelValues ml.Tensor) (ml.Tensor, error) {
	hiddenStates, err := m.PatchEmbedding.Forward(ctx, pixelValues, m.VisionModelOptions)
	if err != nil {
		return nil, err
	}

	if m.ClassToken != nil {
		batch := hiddenStates.Dim(0)
		hiddenStates = m.ClassToken.Repeat(ctx, 0, batch).Concat(ctx, hiddenStates, 1)
	}

	hiddenStates, err = m.Position.Forward(ctx, hiddenStates)
	if err != nil {
		return nil, err
	}

	hiddenStates, err = m.Encoder.Forward(ctx, hiddenStates, m.VisionModelOptions)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	logits, err := m.Head.Forward(ctx, hiddenStates, m.VisionModelOptions)
	if err != nil {
		return nil, err
	}

	logutil.Trace("logits", "shape", logits.Shape(), "values", ml.DumpValue{T: logits, Opts: []ml.DumpOptions{ml.DumpWithEdgeItems(4)}})
	return logits, nil
}

// Parameters gibt die Parameter-Registry zurueck
func (m *Model) Parameters() *nn.Registry {
	return m.params
}

// NumParams gibt die Gesamtzahl lernbarer Parameter zurueck
func (m *Model) NumParams() int {
	return m.params.NumElements()
}

// ParamCount berechnet die Parameterzahl einer Konfiguration ohne Gewichte
// anzulegen. Fuer gueltige Konfigurationen gleich NumParams des Modells.
func ParamCount(c model.Config) int {
	c = c.WithDefaults()
	linear := func(in, out int) int { return in*out + out }
	norm := 2 * c.EmbedDim

	n := linear(c.PatchDim(), c.EmbedDim)
	if c.HasClassToken() {
		n += c.EmbedDim
	}
	if c.Positional == model.PositionalLearned {
		n += c.SeqLen() * c.EmbedDim
	}

	block := norm + 3*linear(c.EmbedDim, c.AttnDim) + linear(c.AttnDim, c.EmbedDim) +
		norm + linear(c.EmbedDim, c.MLPDim) + linear(c.MLPDim, c.EmbedDim)
	n += c.Depth * block

	return n + norm + linear(c.EmbedDim, c.NumClasses)
}

func init() {
	model.Register("vit", New)
}
