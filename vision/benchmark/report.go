// MODUL: report
// ZWECK: Report-Generierung fuer Benchmark-Ergebnisse (JSON, Markdown, Console)
// INPUT: Result Slices, Config
// OUTPUT: Formatierte Reports
// NEBENEFFEKTE: Dateisystem-Schreibzugriff bei Export-Funktionen
// ABHAENGIGKEITEN: tablewriter, uuid, format
// HINWEISE: Jeder Report traegt eine Run-ID zur Zuordnung von Dateien

package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/ollama/vit/format"
	"github.com/ollama/vit/version"
)

// Report enthaelt alle Benchmark-Ergebnisse mit Metadaten
type Report struct {
	RunID      string     `json:"run_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Version    string     `json:"version"`
	SystemInfo SystemInfo `json:"system_info"`
	Config     Config     `json:"config"`
	Results    []Result   `json:"results"`
	Summary    Summary    `json:"summary"`
}

// SystemInfo enthaelt Systeminformationen zum Benchmark
type SystemInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCores  int    `json:"cpu_cores"`
	GoVersion string `json:"go_version"`
}

// Summary fasst die wichtigsten Ergebnisse zusammen
type Summary struct {
	BestBatchSize  int           `json:"best_batch_size"`
	BestThroughput float64       `json:"best_throughput"`
	MinLatency     time.Duration `json:"min_latency"`
	TotalRuns      int           `json:"total_runs"`
}

// CurrentSystem liest die Systeminformationen der laufenden Maschine
func CurrentSystem() SystemInfo {
	return SystemInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUCores:  runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
}

// NewReport erstellt einen Report mit neuer Run-ID
func NewReport(results []Result, cfg Config) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		Timestamp:  time.Now(),
		Version:    version.Version,
		SystemInfo: CurrentSystem(),
		Config:     cfg,
		Results:    results,
		Summary:    summarize(results),
	}
}

func summarize(results []Result) Summary {
	s := Summary{}
	for _, r := range results {
		s.TotalRuns += r.Iterations
		if r.Throughput > s.BestThroughput {
			s.BestThroughput = r.Throughput
			s.BestBatchSize = r.BatchSize
		}
		if s.MinLatency == 0 || r.MinLatency < s.MinLatency {
			s.MinLatency = r.MinLatency
		}
	}
	return s
}

// ExportJSON schreibt den Report als JSON-Datei
func (r *Report) ExportJSON(path string) error {
	return export(path, r.WriteJSON)
}

// WriteJSON schreibt den Report als JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ExportMarkdown schreibt den Report als Markdown-Datei
func (r *Report) ExportMarkdown(path string) error {
	return export(path, r.WriteMarkdown)
}

func export(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report-datei erstellen: %w", err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

// WriteMarkdown schreibt den Report als Markdown
func (r *Report) WriteMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# ViT Forward Benchmark\n\n")
	fmt.Fprintf(w, "- **Run:** `%s`\n", r.RunID)
	fmt.Fprintf(w, "- **Datum:** %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "- **System:** %s/%s, %d CPU-Kerne, %s\n\n", r.SystemInfo.OS, r.SystemInfo.Arch, r.SystemInfo.CPUCores, r.SystemInfo.GoVersion)

	fmt.Fprintln(w, "| Model | Backend | Input | Batch | Avg | StdDev | P95 | Throughput | Memory/Iter |")
	fmt.Fprintln(w, "|-------|---------|-------|-------|-----|--------|-----|------------|-------------|")
	for _, res := range r.Results {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s | %s | %.1f img/s | %s |\n",
			res.Model, res.Backend, res.ImageSize, res.BatchSize,
			formatDuration(res.AvgLatency), formatDuration(res.StdDev), formatDuration(res.P95Latency),
			res.Throughput, format.HumanBytes(int64(res.MemoryUsed)))
	}

	fmt.Fprintf(w, "\n**Bester Durchsatz:** %.1f img/s bei Batch %d\n", r.Summary.BestThroughput, r.Summary.BestBatchSize)
	return nil
}

// WriteConsole schreibt die Ergebnisse als Tabelle
func (r *Report) WriteConsole(w io.Writer) {
	var data [][]string
	for _, res := range r.Results {
		data = append(data, []string{
			strconv.Itoa(res.BatchSize),
			formatDuration(res.AvgLatency),
			formatDuration(res.StdDev),
			formatDuration(res.P95Latency),
			fmt.Sprintf("%.1f", res.Throughput),
			format.HumanBytes(int64(res.MemoryUsed)),
		})
	}

	fmt.Fprintf(w, "%s on %s (%d threads), %s params, run %s\n\n",
		r.Config.Name, backendOf(r.Results), r.Config.Threads, format.HumanNumber(uint64(paramsOf(r.Results))), r.RunID)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"BATCH", "AVG/IMG", "STDDEV", "P95", "IMG/S", "MEM/ITER"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func backendOf(results []Result) string {
	if len(results) == 0 {
		return "-"
	}
	return results[0].Backend
}

func paramsOf(results []Result) int {
	if len(results) == 0 {
		return 0
	}
	return results[0].Params
}

// SortByThroughput sortiert Ergebnisse nach Durchsatz (absteigend)
func SortByThroughput(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Throughput > b.Throughput:
			return -1
		case a.Throughput < b.Throughput:
			return 1
		}
		return 0
	})
}

// formatDuration formatiert eine Duration fuer menschliche Lesbarkeit
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fus", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
