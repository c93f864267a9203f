// registry.go - Geordnete Parameter-Registry
//
// Jede Komponente listet ihre eigenen Parameter; zusammengesetzte
// Komponenten haengen die Listen ihrer Kinder mit Praefix an. Die
// Reihenfolge entspricht der Konstruktionsreihenfolge.
package nn

import (
	"errors"
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ollama/vit/ml"
)

var ErrDuplicateParam = errors.New("nn: duplicate parameter")

// Param ist ein benannter Parameter-Tensor
type Param struct {
	Name   string
	Tensor ml.Tensor
}

// Prefixed stellt allen Namen prefix voran
func Prefixed(prefix string, params ...Param) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{Name: join(prefix, p.Name), Tensor: p.Tensor}
	}
	return out
}

func join(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// Registry haelt Parameter in Einfuegereihenfolge
type Registry struct {
	params *orderedmap.OrderedMap[string, ml.Tensor]
}

func NewRegistry() *Registry {
	return &Registry{params: orderedmap.New[string, ml.Tensor]()}
}

// Register fuegt params unter prefix hinzu. Doppelte Namen sind ein Fehler.
func (r *Registry) Register(prefix string, params ...Param) error {
	for _, p := range params {
		name := join(prefix, p.Name)
		if p.Tensor == nil {
			return fmt.Errorf("nn: parameter %q has no tensor", name)
		}
		if _, ok := r.params.Get(name); ok {
			return fmt.Errorf("%w: %s", ErrDuplicateParam, name)
		}
		r.params.Set(name, p.Tensor)
	}
	return nil
}

// Get gibt den Parameter mit dem vollen Namen zurueck
func (r *Registry) Get(name string) (ml.Tensor, bool) {
	return r.params.Get(name)
}

// Len gibt die Anzahl registrierter Tensoren zurueck
func (r *Registry) Len() int {
	return r.params.Len()
}

// All iteriert in Registrierungsreihenfolge ueber Name und Tensor
func (r *Registry) All() iter.Seq2[string, ml.Tensor] {
	return func(yield func(string, ml.Tensor) bool) {
		for pair := r.params.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Names gibt alle Namen in Registrierungsreihenfolge zurueck
func (r *Registry) Names() []string {
	names := make([]string, 0, r.params.Len())
	for name := range r.All() {
		names = append(names, name)
	}
	return names
}

// NumElements summiert die Elementanzahl aller Parameter
func (r *Registry) NumElements() int {
	var n int
	for _, t := range r.All() {
		n += NumElements(t.Shape())
	}
	return n
}

// NumElements gibt das Produkt der Dimensionen einer Shape zurueck
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
