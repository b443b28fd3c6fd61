package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
	"github.com/ekaya-inc/ekaya-logscope/pkg/handlers"
	"github.com/ekaya-inc/ekaya-logscope/pkg/mcp"
	"github.com/ekaya-inc/ekaya-logscope/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-logscope/pkg/middleware"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP over streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.open(nil)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), conn)
		},
	}
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; traces only reach the logger.
			conn, err := a.open(nil)
			if err != nil {
				return err
			}
			return a.newMCPServer(conn).ServeStdio()
		},
	}
}

func (a *app) newMCPServer(conn *engine.Connection) *mcp.Server {
	s := mcp.NewServer("ekaya-logscope", a.version, a.logger.Named("mcp"))
	tools.RegisterHealthTool(s.MCP(), a.version, conn)
	deps := &tools.LogToolDeps{
		Conn:      conn,
		Logger:    a.logger.Named("mcp-tools"),
		AllowExec: a.cfg.MCP.AllowExec,
	}
	if a.cfg.MCP.RedactSecrets {
		deps.Redactor = tools.DefaultSensitiveDetector
	}
	tools.RegisterLogTools(s.MCP(), deps)
	return s
}

// newHandler builds the HTTP routes: health, the group API and /mcp.
func (a *app) newHandler(conn *engine.Connection) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(a.cfg, conn, a.logger.Named("health")).RegisterRoutes(mux)
	handlers.NewLogsHandler(conn, a.cfg.HTTP.AllowExec, a.logger.Named("logs")).RegisterRoutes(mux)
	mux.Handle("/mcp", a.newMCPServer(conn).NewStreamableHTTPServer())

	return middleware.RequestLogger(a.logger.Named("http"))(mux)
}

func (a *app) serve(ctx context.Context, conn *engine.Connection) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr(),
		Handler:           a.newHandler(conn),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting ekaya-logscope",
			zap.String("addr", srv.Addr),
			zap.String("base_url", a.cfg.BaseURL),
			zap.String("topology", conn.Origin()),
			zap.Int("groups", len(conn.Groups())),
			zap.String("version", a.version))

		var err error
		if a.cfg.TLSCertPath != "" {
			err = srv.ListenAndServeTLS(a.cfg.TLSCertPath, a.cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
