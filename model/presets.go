// presets.go - Benannte Standard-Konfigurationen
package model

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Preset ist eine benannte Konfiguration
type Preset struct {
	Name        string
	Description string
	Config      Config
}

var presets = []Preset{
	{
		Name:        "reference",
		Description: "Single-channel 256x256 classifier with 2000 classes",
		Config: Config{
			EmbedDim: 512, PatchSize: 16, ImageSize: 256, Depth: 6, HeadDim: 64,
			NumHeads: 8, Dropout: 0.2, NumClasses: 2000, Channels: 1,
		},
	},
	{
		Name:        "vit-tiny",
		Description: "ViT-Ti/16 on 224x224 RGB, 1000 classes",
		Config: Config{
			EmbedDim: 192, PatchSize: 16, ImageSize: 224, Depth: 12, HeadDim: 64,
			NumHeads: 3, NumClasses: 1000, Channels: 3,
		},
	},
	{
		Name:        "vit-small",
		Description: "ViT-S/16 on 224x224 RGB, 1000 classes",
		Config: Config{
			EmbedDim: 384, PatchSize: 16, ImageSize: 224, Depth: 12, HeadDim: 64,
			NumHeads: 6, NumClasses: 1000, Channels: 3,
		},
	},
	{
		Name:        "vit-base",
		Description: "ViT-B/16 on 224x224 RGB, 1000 classes",
		Config: Config{
			EmbedDim: 768, PatchSize: 16, ImageSize: 224, Depth: 12, HeadDim: 64,
			NumHeads: 12, Dropout: 0.1, NumClasses: 1000, Channels: 3,
		},
	},
	{
		Name:        "vit-large",
		Description: "ViT-L/16 on 224x224 RGB, 1000 classes",
		Config: Config{
			EmbedDim: 1024, PatchSize: 16, ImageSize: 224, Depth: 24, HeadDim: 64,
			NumHeads: 16, Dropout: 0.1, NumClasses: 1000, Channels: 3,
		},
	},
}

// Presets gibt alle Presets in fester Reihenfolge zurueck
func Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		p.Config = p.Config.WithDefaults()
		out[i] = p
	}
	return out
}

// PresetNames gibt die Namen aller Presets zurueck
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// LookupPreset gibt die Konfiguration eines Presets zurueck
func LookupPreset(name string) (Config, error) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p.Config.WithDefaults(), nil
		}
	}

	reason := "unknown preset"
	if s := Suggest(name, PresetNames()); s != "" {
		reason = fmt.Sprintf("unknown preset, did you mean %q?", s)
	}
	return Config{}, &ConfigError{Field: "preset", Value: name, Reason: reason}
}

// Suggest gibt den naechstliegenden Kandidaten zurueck, falls er nah genug ist
func Suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}

	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}
