package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"companionforge/internal/app/bootstrap"
	"companionforge/internal/platform/config"
	applog "companionforge/internal/platform/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg *config.AppConfig

	root := &cobra.Command{
		Use:           "companionforge",
		Short:         "Companion studio API and Telegram webhook server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			cfg = loaded
			applog.Init(applog.Config{
				Level:   cfg.LogLevel,
				Format:  cfg.LogFormat,
				Service: "companionforge",
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			applog.Sync()
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	root.RunE = serveCmd.RunE

	root.AddCommand(serveCmd, &cobra.Command{
		Use:   "migrate",
		Short: "Create database tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := bootstrap.Migrate(ctx, cfg); err != nil {
				return err
			}
			applog.Info("✅ Migration complete")
			return nil
		},
	})
	return root
}

func serve(parent context.Context, cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()
	services.RunJanitor(ctx)

	go func() {
		<-ctx.Done()
		applog.Info("🔄 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := services.Server.Stop(shutdownCtx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := services.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	applog.Info("👋 Server stopped")
	return nil
}
