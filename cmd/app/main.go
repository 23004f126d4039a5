package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arnaldur/lesari/internal"
	"github.com/arnaldur/lesari/internal/annotations"
	"github.com/arnaldur/lesari/internal/mcpserver"
	"github.com/arnaldur/lesari/internal/storage"
	pkgconfig "github.com/arnaldur/lesari/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves annotation tools over MCP stdio against the configured
// store backend, for wiring Lesari into an LLM client.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	var provider storage.Provider
	if cfg.Store.Backend == internal.StoreBackendSQLite {
		db, err := storage.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		defer db.Close()
		provider = db
	} else {
		if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("init fs store: %w", err)
		}
		provider = fs
	}

	store := annotations.NewStore(provider, logger)
	store.Load()

	return mcpserver.New(store).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "lesari",
		Usage:  "Annotation backend for the Lesari textbook reader: stable text anchors, indexed highlights, cross-instance sync",
		Action: runServe,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve annotation tools over MCP stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
