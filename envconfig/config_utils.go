// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - String: String-Getter
// - Uint/Uint64: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Uint64 gibt eine Funktion zurueck, die einen uint64 mit Default-Wert liest
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"VIT_DEBUG":       {"VIT_DEBUG", LogLevel(), "Show additional debug information (e.g. VIT_DEBUG=1)"},
		"VIT_HOST":        {"VIT_HOST", Host(), "IP Address for the vit server (default 127.0.0.1:11500)"},
		"VIT_ORIGINS":     {"VIT_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"VIT_NUM_THREADS": {"VIT_NUM_THREADS", NumThreads(), "Maximum number of parallel matrix workers"},
		"VIT_SEED":        {"VIT_SEED", Seed(), "Seed for weight initialization (default 0)"},
		"VIT_PRESET":      {"VIT_PRESET", Preset(), "Model preset used when no configuration is given (default \"reference\")"},
		"VIT_MAX_BATCH":   {"VIT_MAX_BATCH", MaxBatch(), "Maximum number of images per classify request (default 16)"},
		"VIT_WEIGHT_TYPE": {"VIT_WEIGHT_TYPE", WeightType(), "Weight precision: f32, f16 or bf16 (default f32)"},
		"VIT_LABELS":      {"VIT_LABELS", Labels(), "File with one class label per line"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
