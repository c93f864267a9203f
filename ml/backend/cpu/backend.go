// backend.go - CPU-Backend Struktur und Registrierung
// Enthaelt: Backend struct, New, NewContext, Registrierung als "cpu"

package cpu

import (
	"log/slog"
	"math/rand/v2"

	"github.com/ollama/vit/ml"
)

func init() {
	ml.RegisterBackend("cpu", New)
}

// Backend rechnet mit float32-Slices im Hauptspeicher.
type Backend struct {
	// threads begrenzt die parallel laufenden Worker pro Operation
	threads int
}

// New erzeugt ein CPU-Backend
func New(params ml.BackendParams) (ml.Backend, error) {
	threads := params.NumThreads
	if threads <= 0 {
		threads = 1
	}

	slog.Debug("cpu backend", "threads", threads)
	return &Backend{threads: threads}, nil
}

// Name gibt den Registrierungsnamen zurueck
func (b *Backend) Name() string {
	return "cpu"
}

// Threads gibt die Anzahl Worker zurueck
func (b *Backend) Threads() int {
	return b.threads
}

// NewContext erzeugt einen Kontext mit eigenem Zufallsgenerator
func (b *Backend) NewContext(params ml.ContextParams) ml.Context {
	return &Context{
		b:        b,
		training: params.Training,
		rng:      rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15)),
	}
}

// Close gibt Ressourcen frei (keine beim CPU-Backend)
func (b *Backend) Close() {}
