// errors.go - Fehler-Taxonomie fuer Modell-Konstruktion und Forward-Pass
//
// Konfigurationsfehler entstehen bei der Konstruktion und verhindern die
// Erzeugung des Modells. Shape-Fehler entstehen im Forward-Pass, betreffen
// nur den einzelnen Aufruf und lassen das Modell unveraendert.
package model

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration    = errors.New("model: invalid configuration")
	ErrShapeMismatch    = errors.New("model: shape mismatch")
	ErrUnsupportedModel = errors.New("model: architecture not supported")
)

// ConfigError beschreibt einen ungueltigen Konfigurationswert
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// ShapeError beschreibt eine Eingabe, deren Shape nicht zur Konfiguration passt.
// Eine -1 in Want steht fuer eine beliebige Groesse (z.B. die Batch-Dimension).
type ShapeError struct {
	Op     string
	Want   []int
	Got    []int
	Reason string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("%v in %s: want %v, got %v", ErrShapeMismatch, e.Op, e.Want, e.Got)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// CheckShape vergleicht got mit want, wobei -1 in want jede Groesse akzeptiert
func CheckShape(op string, got []int, want ...int) error {
	if len(got) != len(want) {
		return &ShapeError{Op: op, Want: want, Got: got, Reason: "wrong number of dimensions"}
	}
	for i := range want {
		if want[i] != -1 && want[i] != got[i] {
			return &ShapeError{Op: op, Want: want, Got: got}
		}
	}
	return nil
}
