// cmd_params.go - Parameterzahl und Presets
// Hauptfunktionen: ParamsHandler, PresetsHandler
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ollama/vit/format"
	"github.com/ollama/vit/ml/nn"
	"github.com/ollama/vit/model"
	"github.com/ollama/vit/model/models/vit"
)

// ParamsHandler - Gibt die Anzahl trainierbarer Parameter aus.
// Mit --verbose folgt eine Tabelle aller Parameter-Tensoren.
func ParamsHandler(cmd *cobra.Command, args []string) error {
	r, err := resolveModel(cmd, args)
	if err != nil {
		return err
	}

	m, err := loadModel(r)
	if err != nil {
		return err
	}
	defer m.Backend().Close()

	params := m.Parameters()
	out := cmd.OutOrStdout()

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		var data [][]string
		for name, t := range params.All() {
			data = append(data, []string{
				name,
				formatShape(t.Shape()),
				strconv.Itoa(nn.NumElements(t.Shape())),
			})
		}

		fmt.Fprintf(out, "%s\n\n", r.Config.String())

		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"NAME", "SHAPE", "ELEMENTS"})
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetHeaderLine(false)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(data)
		table.Render()

		fmt.Fprintf(out, "\n%d tensors, %s parameters\n", params.Len(), format.HumanNumber(uint64(params.NumElements())))
	}

	fmt.Fprintln(out, params.NumElements())
	return nil
}

// PresetsHandler - Listet alle Presets mit Parameterzahl.
// Die Zahl wird aus der Konfiguration berechnet, ohne Gewichte anzulegen.
func PresetsHandler(cmd *cobra.Command, _ []string) error {
	var data [][]string
	for _, p := range model.Presets() {
		c := p.Config
		n := vit.ParamCount(c)

		data = append(data, []string{
			p.Name,
			fmt.Sprintf("%dx%dx%d/%d", c.Channels, c.ImageSize, c.ImageSize, c.PatchSize),
			fmt.Sprintf("%dx%d", c.Depth, c.EmbedDim),
			strconv.Itoa(c.NumClasses),
			format.HumanNumber(uint64(n)),
			p.Description,
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "INPUT/PATCH", "DEPTH", "CLASSES", "PARAMS", "DESCRIPTION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// newParamsCmd - Erstellt den params Command
func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params [EMBED PATCH IMAGE DEPTH HEADDIM HEADS DROPOUT CLASSES CHANNELS]",
		Short: "Print the number of trainable parameters",
		Example: `  vit params 512 16 256 6 64 8 0.2 2000 1
  vit params --preset vit-base --verbose`,
		Args: modelArgs,
		RunE: ParamsHandler,
	}

	addModelFlags(cmd)
	cmd.Flags().Bool("verbose", false, "List every parameter tensor")
	return cmd
}

// newPresetsCmd - Erstellt den presets Command
func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List named model configurations",
		Args:  cobra.ExactArgs(0),
		RunE:  PresetsHandler,
	}
}
