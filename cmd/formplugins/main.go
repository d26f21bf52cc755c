package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/action/email"
	"github.com/gyaneshwarpardhi/formplugins/internal/api"
	"github.com/gyaneshwarpardhi/formplugins/internal/config"
	"github.com/gyaneshwarpardhi/formplugins/internal/engine"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/store"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "formplugins"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Form pages with conditional fields, templating and e-mail actions",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(logLevel)
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/forms.yaml", "Path to forms YAML config")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfgPath, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a forms config and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugins, actions := registries(mail.NewLogSender(nil))
			cfg, err := config.Load(cfgPath, validator(plugins, actions))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d forms OK\n", cfgPath, len(cfg.Forms))
			return nil
		},
	}

	cmd.AddCommand(serveCmd, validateCmd, &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func registries(sender mail.Sender) (*plugin.Registry, *action.Registry) {
	actions := action.NewRegistry()
	actions.Register(email.New(sender))
	return plugin.Builtin(), actions
}

func validator(plugins *plugin.Registry, actions *action.Registry) func(*config.FormsConfig) error {
	return func(cfg *config.FormsConfig) error {
		return config.Validate(cfg, plugins, actions)
	}
}

func serve(parent context.Context, cfgPath, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := slog.Default()
	sender := mail.NewLogSender(logger)
	plugins, actions := registries(sender)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(cfgPath, logger, validator(plugins, actions))
	if err != nil {
		return err
	}
	cfg := loader.Config()
	slog.Info("config loaded", "path", cfgPath, "forms", len(cfg.Forms))

	// ── Submission store ─────────────────────────────────────────────────────
	db, err := store.Open(cfg.Engine.StorePath)
	if err != nil {
		return err
	}
	defer db.Close()

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	eng := engine.New(ctx, cfg, engine.Deps{
		Store:   db,
		Sender:  sender,
		Actions: actions,
		Plugins: plugins,
		Logger:  logger,
	})

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(eng.SwapConfig)
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(eng, loader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errC:
		return err
	}
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
	return nil
}
