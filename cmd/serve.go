package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/thanveersubeerkhan/multiple-chat-react-backend/db"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/api"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/chat"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/config"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/llm"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/log"
	"github.com/thanveersubeerkhan/multiple-chat-react-backend/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (host:port), overrides config")
	serveCmd.Flags().Bool("json-log", false, "emit logs as JSON")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd)
}

// parseLogLevel maps the --log-level flag to a slog level.
func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// runServe initializes dependencies and runs the HTTP server until a
// termination signal arrives.
func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	jsonLog, _ := cmd.Flags().GetBool("json-log")
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := parseLogLevel(levelName)
	if err != nil {
		return err
	}
	logger := log.New(log.Config{Level: level, JSON: jsonLog})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting chatrelay", "version", version, "addr", cfg.Addr)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	st := store.New(pool, logger)
	gateway := llm.New(llm.Config{
		BaseURL:     cfg.NormalizedBaseURL(),
		APIKey:      cfg.ModelAPIKey,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, logger)
	orch := chat.New(st, gateway, logger)

	srv, err := api.NewServer(api.ServerConfig{
		Logger:       logger,
		Store:        st,
		Orchestrator: orch,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return srv.Run(ctx, cfg.Addr)
}
