// cmd_run.go - Bilder klassifizieren (lokal oder ueber den Server)
// Hauptfunktionen: RunHandler, classifyLocal, classifyRemote, writeResults
package cmd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/vit/api"
	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/ml"
	"github.com/ollama/vit/model"
	"github.com/ollama/vit/vision"
	"github.com/ollama/vit/vision/benchmark"
)

// runResult ist die Ausgabe fuer ein einzelnes Bild
type runResult struct {
	Image string           `json:"image"`
	Top   []api.Prediction `json:"top"`
}

// runOptions sind die Flags von vit run
type runOptions struct {
	images []string
	random int
	topK   int
	json   bool
	remote bool
}

// RunHandler - Klassifiziert Bilddateien oder zufaellige Bilder
func RunHandler(cmd *cobra.Command, args []string) error {
	opts := runOptions{images: args}
	opts.random, _ = cmd.Flags().GetInt("random")
	opts.topK, _ = cmd.Flags().GetInt("top-k")
	opts.json, _ = cmd.Flags().GetBool("json")
	opts.remote, _ = cmd.Flags().GetBool("remote")

	switch {
	case len(args) == 0 && opts.random == 0:
		return errors.New("no images given, pass image files or --random N")
	case len(args) > 0 && opts.random > 0:
		return errors.New("image files and --random cannot be combined")
	case opts.random < 0:
		return fmt.Errorf("--random must not be negative, got %d", opts.random)
	case opts.topK < 1:
		return fmt.Errorf("--top-k must be positive, got %d", opts.topK)
	}

	var results []runResult
	var err error
	if opts.remote {
		results, err = classifyRemote(cmd, opts)
	} else {
		results, err = classifyLocal(cmd, opts)
	}
	if err != nil {
		return err
	}

	return writeResults(cmd.OutOrStdout(), results, opts.json)
}

// classifyLocal - Erstellt das Modell im Prozess und fuehrt den Forward-Pass aus
func classifyLocal(cmd *cobra.Command, opts runOptions) ([]runResult, error) {
	r, err := resolveModel(cmd, nil)
	if err != nil {
		return nil, err
	}

	m, err := loadModel(r)
	if err != nil {
		return nil, err
	}
	defer m.Backend().Close()

	ctx := m.Backend().NewContext(ml.ContextParams{})
	defer ctx.Close()

	c := m.Config()
	names := opts.images

	var input ml.Tensor
	if opts.random > 0 {
		data := benchmark.GenerateBatch(int64(envconfig.Seed()), opts.random, c.Channels, c.ImageSize)
		input = ctx.FromFloats(data, opts.random, c.Channels, c.ImageSize, c.ImageSize)
		names = randomNames(opts.random)
	} else {
		prep, err := vision.NewPreprocessor(c, r.Norm)
		if err != nil {
			return nil, err
		}

		images := make([]*vision.ImageInput, len(opts.images))
		for i, path := range opts.images {
			img, err := vision.LoadImage(path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			images[i] = img
		}

		input, err = prep.Tensor(ctx, images...)
		if err != nil {
			return nil, err
		}
	}

	logits, err := model.Forward(ctx, m, input)
	if err != nil {
		return nil, err
	}

	values := logits.Floats()
	results := make([]runResult, len(names))
	for i, name := range names {
		row := values[i*c.NumClasses : (i+1)*c.NumClasses]
		results[i] = runResult{Image: name}
		for _, s := range model.TopK(row, opts.topK) {
			p := api.Prediction{Index: s.Index, Logit: s.Logit, Probability: s.Probability}
			if len(r.Labels) > 0 {
				p.Label = r.Labels[s.Index]
			}
			results[i].Top = append(results[i].Top, p)
		}
	}
	return results, nil
}

// classifyRemote - Sendet die Bilder an einen laufenden vit Server
func classifyRemote(cmd *cobra.Command, opts runOptions) ([]runResult, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, err
	}

	req := &api.ClassifyRequest{TopK: opts.topK}
	names := opts.images

	if opts.random > 0 {
		show, err := client.Show(cmd.Context(), false)
		if err != nil {
			return nil, err
		}

		c := show.Config
		per := c.Channels * c.ImageSize * c.ImageSize
		data := benchmark.GenerateBatch(int64(envconfig.Seed()), opts.random, c.Channels, c.ImageSize)
		for i := range opts.random {
			req.Pixels = append(req.Pixels, data[i*per:(i+1)*per])
		}
		names = randomNames(opts.random)
	} else {
		for _, path := range opts.images {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			req.Images = append(req.Images, base64.StdEncoding.EncodeToString(data))
		}
	}

	resp, err := client.Classify(cmd.Context(), req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(names) {
		return nil, fmt.Errorf("server returned %d results for %d images", len(resp.Results), len(names))
	}

	results := make([]runResult, len(names))
	for i, name := range names {
		results[i] = runResult{Image: name, Top: resp.Results[i].Top}
	}
	return results, nil
}

func randomNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "random-" + strconv.Itoa(i)
	}
	return names
}

// isTerminal meldet, ob w ein Terminal ist
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeResults - Tabelle auf Terminals, sonst JSON
func writeResults(w io.Writer, results []runResult, asJSON bool) error {
	if asJSON || !isTerminal(w) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	var data [][]string
	for _, r := range results {
		for rank, p := range r.Top {
			data = append(data, []string{
				r.Image,
				strconv.Itoa(rank + 1),
				strconv.Itoa(p.Index),
				p.Label,
				strconv.FormatFloat(float64(p.Logit), 'f', 4, 32),
				fmt.Sprintf("%.2f%%", p.Probability*100),
			})
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"IMAGE", "RANK", "CLASS", "LABEL", "LOGIT", "PROB"})
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

// newRunCmd - Erstellt den run Command
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [IMAGES...]",
		Short: "Classify images",
		Example: `  vit run --preset vit-base cat.jpg dog.png
  vit run --random 8
  vit run --remote photo.webp`,
		RunE: RunHandler,
	}

	addModelFlags(cmd)
	cmd.Flags().Int("random", 0, "Classify N random images instead of files")
	cmd.Flags().Int("top-k", 5, "Number of classes to show per image")
	cmd.Flags().Bool("json", false, "Always print JSON")
	cmd.Flags().Bool("remote", false, "Send images to the server at VIT_HOST")
	return cmd
}
