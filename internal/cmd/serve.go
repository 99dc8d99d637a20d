package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"

	"github.com/giantswarm/simenv"
	"github.com/giantswarm/simenv/internal/config"
	"github.com/giantswarm/simenv/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API and serve until SIGINT or SIGTERM.

On shutdown the listener drains in-flight requests, then every instance is
closed and open monitors are flushed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().String("data-dir", "", "directory for frames and recordings (overrides registry.data_dir)")
	serveCmd.Flags().String("upload-endpoint", "", "recording upload URL (overrides upload.endpoint)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("registry.data_dir", serveCmd.Flags().Lookup("data-dir"))
	_ = viper.BindPFlag("upload.endpoint", serveCmd.Flags().Lookup("upload-endpoint"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging)
	simenv.SetLogger(logger.With("component", "simenv"))

	reg := simenv.NewRegistry(cfg.RegistryOptions()...)
	// Covers exits that bypass the graceful path below; a second Shutdown
	// is a no-op.
	atexit.Register(func() {
		if err := reg.Shutdown(); err != nil {
			logger.Error("registry shutdown failed", "error", err)
		}
	})

	httpCfg := cfg.HTTPConfig()
	httpCfg.Logger = logger
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.New(reg, httpCfg).Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("serving", "addr", cfg.Server.Addr, "kinds", reg.Kinds())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = reg.Shutdown()
			return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	httpErr := srv.Shutdown(shutdownCtx)
	if httpErr != nil {
		httpErr = fmt.Errorf("http shutdown: %w", httpErr)
	}
	return errors.Join(httpErr, reg.Shutdown())
}
