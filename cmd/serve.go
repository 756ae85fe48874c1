package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveTempDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the file picker repository over HTTP",
	Long: `Expose the upload-only repository: the listing descriptor, the supported
return types, and the upload endpoint that returns a player link.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (defaults to server.addr)")
	serveCmd.Flags().StringVar(&serveTempDir, "temp-dir", os.TempDir(), "Directory for staged uploads")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	addr := serveAddr
	if addr == "" {
		addr = service.Config().Server.Addr
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           service.Handler(serveTempDir).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Serving repository", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
