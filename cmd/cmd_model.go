// cmd_model.go - Modell-Auswahl fuer alle Commands
// Hauptfunktionen: addModelFlags, resolveModel, loadModel
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/huggingface"
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/model"
	_ "github.com/ollama/vit/model/models"
	"github.com/ollama/vit/vision"
)

// resolved ist eine Modell-Konfiguration mit Vorverarbeitung und Labels
type resolved struct {
	Source string
	Config model.Config
	Norm   vision.Normalization
	Labels []string
}

var errAmbiguousModel = errors.New("only one of positional arguments, --preset, --config and --hf may be given")

// addModelFlags - Registriert die Flags zur Modell-Auswahl
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "Named model configuration (see 'vit presets')")
	cmd.Flags().String("config", "", "Path to a JSON model configuration")
	cmd.Flags().String("hf", "", "Directory with a Hugging Face config.json and preprocessor_config.json")
}

// modelArgs - Akzeptiert keine oder genau die neun Positionsargumente
func modelArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != len(model.ArgNames) {
		return fmt.Errorf("accepts 0 or %d arg(s), received %d", len(model.ArgNames), len(args))
	}
	return nil
}

// resolveModel - Bestimmt die Konfiguration aus Argumenten oder Flags.
// Ohne Angabe wird das Preset aus VIT_PRESET verwendet. VIT_LABELS
// ersetzt die Labels der Quelle.
func resolveModel(cmd *cobra.Command, args []string) (resolved, error) {
	r, err := resolveSource(cmd, args)
	if err != nil {
		return resolved{}, err
	}

	path := envconfig.Labels()
	if path == "" {
		return r, nil
	}

	labels, err := readLabels(path)
	if err != nil {
		return resolved{}, err
	}
	if len(labels) != r.Config.NumClasses {
		return resolved{}, fmt.Errorf("%w: %s has %d labels for %d classes", model.ErrConfiguration, path, len(labels), r.Config.NumClasses)
	}

	r.Labels = labels
	return r, nil
}

// readLabels liest eine Label-Datei mit einem Label pro Zeile.
// Leere Zeilen am Ende werden ignoriert.
func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	return labels, nil
}

func resolveSource(cmd *cobra.Command, args []string) (resolved, error) {
	preset, _ := cmd.Flags().GetString("preset")
	configPath, _ := cmd.Flags().GetString("config")
	hfDir, _ := cmd.Flags().GetString("hf")

	sources := 0
	for _, set := range []bool{len(args) > 0, preset != "", configPath != "", hfDir != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return resolved{}, errAmbiguousModel
	}

	switch {
	case len(args) > 0:
		c, err := model.ConfigFromArgs(args)
		if err != nil {
			return resolved{}, err
		}
		return resolved{Source: "args", Config: c, Norm: vision.Standard}, nil
	case configPath != "":
		c, err := model.LoadConfig(configPath)
		if err != nil {
			return resolved{}, err
		}
		return resolved{Source: configPath, Config: c, Norm: vision.Standard}, nil
	case hfDir != "":
		c, norm, labels, err := huggingface.Import(hfDir)
		if err != nil {
			return resolved{}, err
		}
		return resolved{Source: hfDir, Config: c, Norm: norm, Labels: labels}, nil
	}

	if preset == "" {
		preset = envconfig.Preset()
	}
	c, err := model.LookupPreset(preset)
	if err != nil {
		return resolved{}, err
	}
	return resolved{Source: preset, Config: c, Norm: vision.ImageNet}, nil
}

// modelOptions - Liest Seed, Threads und Gewichtstyp aus der Umgebung
func modelOptions() ([]model.Option, error) {
	dtype, err := ml.ParseDType(envconfig.WeightType())
	if err != nil {
		return nil, fmt.Errorf("VIT_WEIGHT_TYPE: %w", err)
	}

	threads := int(envconfig.NumThreads())
	if threads < 1 {
		threads = runtime.NumCPU()
	}

	return []model.Option{
		model.WithSeed(envconfig.Seed()),
		model.WithThreads(threads),
		model.WithWeightType(dtype),
	}, nil
}

// loadModel - Erstellt das Modell fuer die aufgeloeste Konfiguration
func loadModel(r resolved) (model.Model, error) {
	opts, err := modelOptions()
	if err != nil {
		return nil, err
	}
	return model.New(r.Config, opts...)
}
