package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atc-agent/atc/internal/agent"
	"github.com/atc-agent/atc/internal/api"
	"github.com/atc-agent/atc/internal/config"
	"github.com/atc-agent/atc/internal/providers"
	"github.com/atc-agent/atc/internal/store/sqlite"
	"github.com/atc-agent/atc/internal/tools"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config and ATC_LISTEN)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("store ready", "path", cfg.DBPath)

	runtime := tools.NewRuntime(db, tools.Default())
	engine := agent.NewEngine(db, providers.NewOpenAIFromEnv(), cfg.Defaults)

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: api.NewRouter(api.RouterDeps{
			Repo:      db,
			Engine:    engine,
			Runtime:   runtime,
			RateLimit: 50,
			RateBurst: 100,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			db, err := sqlite.Open(cmd.Context(), cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("migrations applied", "path", cfg.DBPath)
			return nil
		},
	}
}
