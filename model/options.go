// MODUL: options
// ZWECK: Functional Options fuer die Modell-Konstruktion
// INPUT: Optionale Parameter (Seed, Threads, Gewichtstyp, Backend)
// OUTPUT: Options Struct
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: ml (DType, Backend)
// HINWEISE: Defaults kommen aus envconfig, Optionen ueberschreiben sie

package model

import (
	"errors"
	"runtime"

	"github.com/ollama/vit/ml"
)

// Options steuert die Konstruktion eines Modells
type Options struct {
	Seed       uint64     // Seed fuer die Gewichts-Initialisierung
	Threads    int        // Worker fuer Matrix-Operationen
	WeightType ml.DType   // Praezision der Gewichte
	Backend    ml.Backend // vorhandenes Backend, sonst wird "cpu" erzeugt
}

// Option ist eine funktionale Option fuer Options
type Option func(*Options)

var (
	ErrInvalidThreads    = errors.New("model: invalid thread count")
	ErrInvalidWeightType = errors.New("model: invalid weight type")
)

// DefaultOptions gibt die Standard-Konfiguration zurueck
func DefaultOptions() Options {
	return Options{
		Seed:       0,
		Threads:    runtime.NumCPU(),
		WeightType: ml.DTypeF32,
	}
}

// WithSeed setzt den Seed der Initialisierung
func WithSeed(seed uint64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithThreads setzt die Anzahl Worker
func WithThreads(n int) Option {
	return func(o *Options) {
		o.Threads = n
	}
}

// WithWeightType rundet alle Gewichte auf die gegebene Praezision
func WithWeightType(dtype ml.DType) Option {
	return func(o *Options) {
		o.WeightType = dtype
	}
}

// WithBackend verwendet ein bereits erzeugtes Backend
func WithBackend(b ml.Backend) Option {
	return func(o *Options) {
		o.Backend = b
	}
}

// Apply wendet alle Optionen an
func (o *Options) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// Validate prueft die Optionen
func (o Options) Validate() error {
	if o.Threads < 1 {
		return ErrInvalidThreads
	}
	switch o.WeightType {
	case ml.DTypeF32, ml.DTypeF16, ml.DTypeBF16:
	default:
		return ErrInvalidWeightType
	}
	return nil
}
