// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs, versionHandler
package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/vit/api"
	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/version"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// versionHandler - Gibt Client- und, falls erreichbar, Server-Version aus
func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "vit version is %s\n", version.Version)

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		return
	}

	if serverVersion != version.Version {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: server version is %s\n", serverVersion)
	}
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "vit",
		Short:         "Vision transformer classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	paramsCmd := newParamsCmd()
	runCmd := newRunCmd()
	benchCmd := newBenchCmd()
	serveCmd := newServeCmd()
	presetsCmd := newPresetsCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	modelEnvs := []envconfig.EnvVar{
		envVars["VIT_PRESET"],
		envVars["VIT_SEED"],
		envVars["VIT_NUM_THREADS"],
		envVars["VIT_WEIGHT_TYPE"],
		envVars["VIT_LABELS"],
	}

	for _, cmd := range []*cobra.Command{
		paramsCmd,
		runCmd,
		benchCmd,
		serveCmd,
	} {
		switch cmd {
		case runCmd:
			appendEnvDocs(cmd, append([]envconfig.EnvVar{envVars["VIT_HOST"]}, modelEnvs...))
		case serveCmd:
			appendEnvDocs(cmd, append([]envconfig.EnvVar{
				envVars["VIT_DEBUG"],
				envVars["VIT_HOST"],
				envVars["VIT_ORIGINS"],
				envVars["VIT_MAX_BATCH"],
			}, modelEnvs...))
		default:
			appendEnvDocs(cmd, modelEnvs)
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		runCmd,
		paramsCmd,
		presetsCmd,
		benchCmd,
	)

	return rootCmd
}
