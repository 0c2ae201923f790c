// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbland/emailcheck/handler"
	"github.com/spf13/cobra"
)

const serveDescription = `` +
	`Runs the emailcheck HTTP API as a standalone server

Configuration comes from the same environment variables as the Lambda
function. The --addr flag overrides LISTEN_ADDR.

Serves:
  POST ` + handler.ValidateEmailsPath + `
  GET  ` + handler.HealthPath + `
  GET  ` + handler.MetricsPath + `

Shuts down gracefully on SIGINT or SIGTERM.`

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func init() {
	rootCmd.AddCommand(newServeCmd(os.Getenv, handler.LoadDefaultAwsConfig))
}

func newServeCmd(
	getenv func(string) string, loadAwsConfig handler.AwsConfigLoader,
) (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  serveDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signal.NotifyContext(
				cmd.Context(), os.Interrupt, syscall.SIGTERM,
			)
			defer stop()
			return serve(ctx, cmd, getenv, loadAwsConfig)
		},
	}
	cmd.Flags().String(FlagAddr, "", "address to listen on (host:port)")
	return
}

func serve(
	ctx context.Context,
	cmd *cobra.Command,
	getenv func(string) string,
	loadAwsConfig handler.AwsConfigLoader,
) error {
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	opts, err := handler.GetOptions(getenv)
	if err != nil {
		return err
	}
	if addr := getStringFlag(cmd, FlagAddr); addr != "" {
		opts.ListenAddr = addr
	}

	metrics := handler.NewMetrics()
	bv, err := handler.NewBatchValidator(
		ctx, opts, metrics, loadAwsConfig, logger,
	)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           handler.NewApiHandler(bv, opts, metrics, logger),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          logger,
	}
	return serveUntilDone(ctx, srv, ln, logger)
}

// serveUntilDone runs srv on ln until ctx is done, then shuts it down,
// allowing in flight requests up to shutdownTimeout to complete.
func serveUntilDone(
	ctx context.Context, srv *http.Server, ln net.Listener, logger *log.Logger,
) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Printf("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx), shutdownTimeout,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	} else if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Printf("shutdown complete")
	return nil
}
