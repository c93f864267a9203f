// config.go - Modell-Konfiguration eines Vision Transformers
//
// Dieses Modul enthaelt:
// - Config: unveraenderlicher Konfigurationsdatensatz
// - Validate: statische Pruefung aller Groessen
// - ParseConfig/LoadConfig: JSON-Konfiguration
// - ConfigFromArgs: die neun Positionsargumente des Referenz-Aufrufs
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Pooling bestimmt die Reduktion der Sequenz im Klassifikationskopf
type Pooling string

const (
	// PoolingCLS waehlt das vorangestellte Aggregat-Token (Position 0)
	PoolingCLS Pooling = "cls"

	// PoolingMean mittelt ueber alle Patch-Positionen, ohne Aggregat-Token
	PoolingMean Pooling = "mean"
)

// Positional bestimmt die Art der Positionskodierung
type Positional string

const (
	// PositionalLearned ist eine gelernte Tabelle (Parameter)
	PositionalLearned Positional = "learned"

	// PositionalSinusoidal ist eine feste Tabelle (kein Parameter)
	PositionalSinusoidal Positional = "sinusoidal"
)

const (
	DefaultArchitecture = "vit"
	DefaultMLPRatio     = 4
	DefaultLayerNormEps = 1e-5
)

// Config enthaelt alle Groessen eines Vision Transformers.
// Alle Tensor-Shapes werden bei der Konstruktion daraus abgeleitet.
type Config struct {
	Architecture string `json:"architecture,omitempty"`

	EmbedDim   int     `json:"embed_dim"`
	PatchSize  int     `json:"patch_size"`
	ImageSize  int     `json:"image_size"`
	Depth      int     `json:"depth"`
	HeadDim    int     `json:"head_dim"`
	NumHeads   int     `json:"num_heads"`
	Dropout    float32 `json:"dropout"`
	NumClasses int     `json:"num_classes"`
	Channels   int     `json:"channels"`

	// MLPDim ist die Breite der Feed-Forward-Expansion (Default 4·EmbedDim)
	MLPDim int `json:"mlp_dim,omitempty"`

	// AttnDim ist die konfigurierte Ausgabebreite der Attention.
	// Default NumHeads·HeadDim; jeder andere Wert ist ein Konfigurationsfehler.
	AttnDim int `json:"attn_dim,omitempty"`

	Pooling      Pooling    `json:"pooling,omitempty"`
	Positional   Positional `json:"positional,omitempty"`
	LayerNormEps float32    `json:"layer_norm_eps,omitempty"`
}

// WithDefaults fuellt optionale Felder mit ihren Standardwerten
func (c Config) WithDefaults() Config {
	if c.Architecture == "" {
		c.Architecture = DefaultArchitecture
	}
	if c.MLPDim == 0 {
		c.MLPDim = DefaultMLPRatio * c.EmbedDim
	}
	if c.AttnDim == 0 {
		c.AttnDim = c.NumHeads * c.HeadDim
	}
	if c.Pooling == "" {
		c.Pooling = PoolingCLS
	}
	if c.Positional == "" {
		c.Positional = PositionalLearned
	}
	if c.LayerNormEps == 0 {
		c.LayerNormEps = DefaultLayerNormEps
	}
	return c
}

// Validate prueft die Konfiguration mit angewendeten Defaults
func (c Config) Validate() error {
	c = c.WithDefaults()

	positive := []struct {
		field string
		value int
	}{
		{"embed_dim", c.EmbedDim},
		{"patch_size", c.PatchSize},
		{"image_size", c.ImageSize},
		{"depth", c.Depth},
		{"head_dim", c.HeadDim},
		{"num_heads", c.NumHeads},
		{"num_classes", c.NumClasses},
		{"channels", c.Channels},
		{"mlp_dim", c.MLPDim},
		{"attn_dim", c.AttnDim},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ConfigError{Field: p.field, Value: p.value, Reason: "must be positive"}
		}
	}

	if c.ImageSize%c.PatchSize != 0 {
		return &ConfigError{
			Field:  "image_size",
			Value:  c.ImageSize,
			Reason: fmt.Sprintf("not a multiple of patch_size %d", c.PatchSize),
		}
	}

	if c.AttnDim != c.NumHeads*c.HeadDim {
		return &ConfigError{
			Field:  "attn_dim",
			Value:  c.AttnDim,
			Reason: fmt.Sprintf("num_heads*head_dim is %d", c.NumHeads*c.HeadDim),
		}
	}

	// NaN faellt durch jeden Vergleich und wird hier mit abgewiesen
	if !(c.Dropout >= 0 && c.Dropout < 1) {
		return &ConfigError{Field: "dropout", Value: c.Dropout, Reason: "must be in [0, 1)"}
	}

	switch c.Pooling {
	case PoolingCLS, PoolingMean:
	default:
		return &ConfigError{Field: "pooling", Value: c.Pooling, Reason: "must be cls or mean"}
	}

	switch c.Positional {
	case PositionalLearned, PositionalSinusoidal:
	default:
		return &ConfigError{Field: "positional", Value: c.Positional, Reason: "must be learned or sinusoidal"}
	}

	if !(c.LayerNormEps >= 0) || math.IsInf(float64(c.LayerNormEps), 1) {
		return &ConfigError{Field: "layer_norm_eps", Value: c.LayerNormEps, Reason: "must be finite and not negative"}
	}

	return nil
}

// GridSize gibt die Anzahl Patches pro Bildkante zurueck
func (c Config) GridSize() int {
	return c.ImageSize / c.PatchSize
}

// NumPatches gibt N = (ImageSize/PatchSize)² zurueck
func (c Config) NumPatches() int {
	return c.GridSize() * c.GridSize()
}

// HasClassToken meldet, ob ein Aggregat-Token vorangestellt wird
func (c Config) HasClassToken() bool {
	return c.WithDefaults().Pooling == PoolingCLS
}

// SeqLen gibt die Sequenzlaenge nach dem optionalen Aggregat-Token zurueck
func (c Config) SeqLen() int {
	if c.HasClassToken() {
		return c.NumPatches() + 1
	}
	return c.NumPatches()
}

// PatchDim gibt die Laenge eines geflachten Patches C·P·P zurueck
func (c Config) PatchDim() int {
	return c.Channels * c.PatchSize * c.PatchSize
}

func (c Config) String() string {
	c = c.WithDefaults()
	return fmt.Sprintf("%s(embed=%d patch=%d image=%d depth=%d heads=%dx%d mlp=%d dropout=%g classes=%d channels=%d pooling=%s positional=%s)",
		c.Architecture, c.EmbedDim, c.PatchSize, c.ImageSize, c.Depth, c.NumHeads, c.HeadDim,
		c.MLPDim, c.Dropout, c.NumClasses, c.Channels, c.Pooling, c.Positional)
}

// ParseConfig liest eine Konfiguration aus JSON. Unbekannte Felder sind ein Fehler.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, &ConfigError{Field: "json", Value: len(data), Reason: err.Error()}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c.WithDefaults(), nil
}

// LoadConfig liest eine JSON-Konfiguration aus einer Datei
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("konfiguration lesen: %w", err)
	}
	return ParseConfig(data)
}

// ArgNames sind die neun Positionsargumente in Aufrufreihenfolge
var ArgNames = []string{
	"embed_dim", "patch_size", "image_size", "depth", "head_dim",
	"num_heads", "dropout", "num_classes", "channels",
}

// ConfigFromArgs baut eine Konfiguration aus den neun Positionsargumenten
// (embed_dim, patch_size, image_size, depth, head_dim, num_heads, dropout,
// num_classes, channels).
func ConfigFromArgs(args []string) (Config, error) {
	if len(args) != len(ArgNames) {
		return Config{}, &ConfigError{
			Field:  "args",
			Value:  len(args),
			Reason: fmt.Sprintf("expected %d values: %s", len(ArgNames), strings.Join(ArgNames, " ")),
		}
	}

	ints := make([]int, len(args))
	for i, arg := range args {
		if ArgNames[i] == "dropout" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return Config{}, &ConfigError{Field: ArgNames[i], Value: arg, Reason: "not an integer"}
		}
		ints[i] = n
	}

	dropout, err := strconv.ParseFloat(strings.TrimSpace(args[6]), 32)
	if err != nil {
		return Config{}, &ConfigError{Field: "dropout", Value: args[6], Reason: "not a number"}
	}

	c := Config{
		EmbedDim:   ints[0],
		PatchSize:  ints[1],
		ImageSize:  ints[2],
		Depth:      ints[3],
		HeadDim:    ints[4],
		NumHeads:   ints[5],
		Dropout:    float32(dropout),
		NumClasses: ints[7],
		Channels:   ints[8],
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c.WithDefaults(), nil
}
