// cmd_serve.go - Server-Start
// Hauptfunktionen: RunServer, newServeCmd
package cmd

import (
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/server"
)

// RunServer - Laedt das Modell und startet den HTTP-Server auf VIT_HOST
func RunServer(cmd *cobra.Command, args []string) error {
	r, err := resolveModel(cmd, args)
	if err != nil {
		return err
	}

	m, err := loadModel(r)
	if err != nil {
		return err
	}

	s, err := server.NewServer(m, r.Labels, r.Norm)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	err = s.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve [EMBED PATCH IMAGE DEPTH HEADDIM HEADS DROPOUT CLASSES CHANNELS]",
		Aliases: []string{"start"},
		Short:   "Start the vit server",
		Args:    modelArgs,
		RunE:    RunServer,
	}

	addModelFlags(cmd)
	return cmd
}
