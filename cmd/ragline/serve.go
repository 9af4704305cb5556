package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/server"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves GET /health and the /rag/* endpoints until interrupted.
When RAG_JWT_SECRET is set, /rag/* requires a bearer token (see "ragline token").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			handler, err := a.Handler()
			if err != nil {
				a.Close()
				return err
			}

			cfg := server.FromConfig(c.cfg.Server)
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			srv := server.NewServer(handler, a, cfg, c.logger)
			return serveUntilDone(cmd.Context(), srv)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default RAG_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default RAG_PORT)")
	return cmd
}

// serveUntilDone runs srv until ctx ends or the listener fails, then shuts
// it down (which also closes the app).
func serveUntilDone(ctx context.Context, srv *server.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx))
}
