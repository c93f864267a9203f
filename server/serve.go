// serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - startet den HTTP-Server fuer ein geladenes Modell

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ollama/vit/envconfig"
	"github.com/ollama/vit/format"
	"github.com/ollama/vit/logutil"
	"github.com/ollama/vit/version"
)

// Serve startet den HTTP-Server auf ln und blockiert bis SIGINT/SIGTERM
func (s *Server) Serve(ln net.Listener) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	s.addr = ln.Addr()
	srvr := &http.Server{
		Handler: s.GenerateRoutes(),
	}

	ctx, done := context.WithCancel(context.Background())

	// listen for a ctrl+c and stop the server
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
		s.model.Backend().Close()
		done()
	}()

	cfg := s.model.Config()
	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	slog.Info("model loaded",
		"config", cfg.String(),
		"params", format.HumanNumber(uint64(s.model.Parameters().NumElements())),
		"backend", s.model.Backend().Name(),
		"images", s.prep != nil)

	err := srvr.Serve(ln)
	// If server is closed from the signal handler, wait for the ctx to be done
	// otherwise error out quickly
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-ctx.Done()
	return nil
}
