// backend.go - Backend-Registry fuer Tensor-Implementierungen
// Dieses Modul verwaltet die registrierten Compute-Backends.
package ml

import (
	"fmt"
	"runtime"
	"sort"
)

// Backend erzeugt Compute-Kontexte fuer ein konkretes Rechenwerk.
type Backend interface {
	Name() string
	NewContext(params ContextParams) Context
	Close()
}

// BackendParams steuert die Erzeugung eines Backends.
type BackendParams struct {
	// NumThreads begrenzt die parallel laufenden Matrix-Worker
	NumThreads int
}

// ContextParams steuert einen einzelnen Compute-Kontext.
type ContextParams struct {
	// Training aktiviert Dropout
	Training bool

	// Seed initialisiert den Zufallsgenerator des Kontexts
	Seed uint64
}

var backends = make(map[string]func(BackendParams) (Backend, error))

// RegisterBackend registriert einen Backend-Konstruktor unter name.
func RegisterBackend(name string, f func(BackendParams) (Backend, error)) {
	if _, ok := backends[name]; ok {
		panic("backend: backend already registered")
	}

	backends[name] = f
}

// NewBackend erzeugt das Backend mit dem gegebenen Namen.
func NewBackend(name string, params BackendParams) (Backend, error) {
	if params.NumThreads <= 0 {
		params.NumThreads = runtime.NumCPU()
	}

	if backend, ok := backends[name]; ok {
		return backend(params)
	}

	return nil, fmt.Errorf("unsupported backend %q", name)
}

// Backends gibt die Namen aller registrierten Backends sortiert zurueck.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
