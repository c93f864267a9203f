// config_features.go - Modell- und Laufzeit-Konfiguration
//
// Dieses Modul enthaelt:
// - Preset und Gewichtstyp des Standard-Modells
// - Seed fuer die Initialisierung
// - Parallelitaets- und Batch-Limits
package envconfig

import (
	"runtime"
	"strings"
)

// =============================================================================
// Modell-Variablen
// =============================================================================

var (
	// Seed ist der Seed fuer die Gewichts-Initialisierung
	Seed = Uint64("VIT_SEED", 0)

	// MaxBatch begrenzt die Anzahl Bilder pro Server-Request
	MaxBatch = Uint("VIT_MAX_BATCH", 16)

	// Labels ist der Pfad einer Label-Datei mit einem Klassennamen pro Zeile
	Labels = String("VIT_LABELS")
)

// Preset gibt den Namen des Standard-Presets zurueck
// Konfigurierbar via VIT_PRESET
// Default: reference
func Preset() string {
	if s := Var("VIT_PRESET"); s != "" {
		return s
	}
	return "reference"
}

// WeightType gibt die Praezision der Gewichte zurueck (f32, f16, bf16)
// Konfigurierbar via VIT_WEIGHT_TYPE
// Default: f32
func WeightType() string {
	if s := strings.ToLower(Var("VIT_WEIGHT_TYPE")); s != "" {
		return s
	}
	return "f32"
}

// =============================================================================
// Parallelitaets-Einstellungen
// =============================================================================

// NumThreads gibt die Anzahl Worker fuer Matrix-Operationen zurueck
// Konfigurierbar via VIT_NUM_THREADS
// Default: Anzahl CPU-Kerne
func NumThreads() uint {
	return Uint("VIT_NUM_THREADS", uint(runtime.NumCPU()))()
}
