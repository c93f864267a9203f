// Package model - Model-Interface und Initialisierung
//
// Dieses Paket definiert das Model-Interface und stellt Funktionen
// zur Initialisierung und Verwaltung von Vision-Transformer-Modellen bereit.
//
// Hauptkomponenten:
// - Model: Interface fuer alle Modell-Architekturen
// - Base: Basis-Implementierung fuer gemeinsame Funktionalitaet
// - New: Erstellt neue Model-Instanzen
// - Register: Registriert Modell-Konstruktoren
// - Forward: Fuehrt Vorwaerts-Pass durch
package model

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/ollama/vit/format"
	"github.com/ollama/vit/ml"
	_ "github.com/ollama/vit/ml/backend"
	"github.com/ollama/vit/ml/nn"
)

// Model definiert das Interface fuer spezifische Modell-Architekturen
type Model interface {
	// Forward bildet einen Bild-Batch (B, C, H, W) auf Logits (B, Klassen) ab
	Forward(ml.Context, ml.Tensor) (ml.Tensor, error)
	Backend() ml.Backend
	Config() Config

	// Parameters gibt die bei der Konstruktion aufgebaute Parameter-Registry zurueck
	Parameters() *nn.Registry
}

// Base implementiert gemeinsame Felder und Methoden fuer alle Modelle
type Base struct {
	b      ml.Backend
	config Config
}

// NewBase erstellt die gemeinsame Basis fuer ein Modell
func NewBase(b ml.Backend, c Config) Base {
	return Base{b: b, config: c}
}

// Backend gibt das Backend zurueck, das das Modell ausfuehrt
func (m *Base) Backend() ml.Backend {
	return m.b
}

// Config gibt die Modell-Konfiguration zurueck
func (m *Base) Config() Config {
	return m.config
}

// Constructor erzeugt ein Modell einer Architektur
type Constructor func(b ml.Backend, c Config, opts Options) (Model, error)

// models speichert registrierte Modell-Konstruktoren
var models = make(map[string]Constructor)

// Register registriert einen Modell-Konstruktor fuer eine Architektur
func Register(name string, f Constructor) {
	if _, ok := models[name]; ok {
		panic("model: model already registered")
	}

	models[name] = f
}

// Architectures gibt alle registrierten Architekturen sortiert zurueck
func Architectures() []string {
	return slices.Sorted(maps.Keys(models))
}

// New initialisiert eine neue Model-Instanz fuer die Konfiguration
func New(c Config, opts ...Option) (Model, error) {
	o := DefaultOptions()
	o.Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	c = c.WithDefaults()

	f, err := modelForArch(c.Architecture)
	if err != nil {
		return nil, err
	}

	b := o.Backend
	if b == nil {
		b, err = ml.NewBackend("cpu", ml.BackendParams{NumThreads: o.Threads})
		if err != nil {
			return nil, err
		}
	}

	m, err := f(b, c, o)
	if err != nil {
		return nil, err
	}

	slog.Debug("model created", "config", c.String(), "params", format.HumanNumber(uint64(NumParams(m))), "weights", o.WeightType)
	return m, nil
}

// modelForArch gibt den Konstruktor einer Architektur zurueck
func modelForArch(arch string) (Constructor, error) {
	f, ok := models[arch]
	if !ok {
		reason := "unknown architecture"
		if s := Suggest(arch, Architectures()); s != "" {
			reason = fmt.Sprintf("unknown architecture, did you mean %q?", s)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedModel, &ConfigError{Field: "architecture", Value: arch, Reason: reason})
	}
	return f, nil
}

// NumParams summiert die Elementanzahl aller Parameter eines Modells
func NumParams(m Model) int {
	return m.Parameters().NumElements()
}

// Forward fuehrt einen Vorwaerts-Pass durch das Modell aus
func Forward(ctx ml.Context, m Model, images ml.Tensor) (ml.Tensor, error) {
	if images == nil {
		return nil, errors.New("images cannot be nil")
	}
	if shape := images.Shape(); len(shape) == 0 || shape[0] < 1 {
		return nil, errors.New("batch size cannot be less than 1")
	}

	return m.Forward(ctx, images)
}
