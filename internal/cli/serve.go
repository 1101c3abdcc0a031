package cli

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

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/config"
	"saa-question-importer/internal/infra/postgres"
	transport "saa-question-importer/internal/transport/http"
)

// NewServeCmd serves the imported bank over HTTP and runs imports over WebSocket.
func NewServeCmd(cfg *config.Config) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question bank API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if port != "" {
				c.Server.Port = port
			}
			return runServer(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := cfg.Server.Port
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	cache := b.questionCache(cfg)
	runs := b.runRegistry(cfg)
	importer, err := newImporter(ctx, cfg, b, cache)
	if err != nil {
		return err
	}

	routes := transport.RouterConfig{
		Bank:    app.NewBankService(cache),
		Runs:    runs,
		Imports: transport.NewWSHandler(importer),
	}
	if b.pool != nil {
		routes.Tags = postgres.NewQuestionStore(b.pool)
	}
	handler := transport.NewRouter(routes)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting question bank server", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
