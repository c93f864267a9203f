// types.go - Datentypen und Konstanten fuer ML-Operationen
// Dieses Modul definiert DType und die Zuordnung zu Namen.
package ml

import (
	"fmt"
	"strings"
)

// DType represents the data type of tensor elements.
//
// Speicherung erfolgt immer als float32; F16 und BF16 runden die Werte
// auf die jeweilige Praezision.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeBF16
)

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	default:
		return "other"
	}
}

// ParseDType wandelt einen Namen (f32, f16, bf16) in einen DType.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "f32", "float32":
		return DTypeF32, nil
	case "f16", "float16":
		return DTypeF16, nil
	case "bf16", "bfloat16":
		return DTypeBF16, nil
	default:
		return DTypeOther, fmt.Errorf("unsupported dtype %q", s)
	}
}
