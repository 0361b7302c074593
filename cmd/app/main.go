package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/edital/internal"
	pkgconfig "github.com/starford/edital/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if owner := cmd.String("owner"); owner != "" {
		cfg.App.Owner = owner
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func exportInbox(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := internal.ExportInbox(ctx, internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "exported %d subjects to %s\n", n, cfg.Inbox.Path)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "edital",
		Usage:  "Study-progress tracker for exam syllabi written as dash-marked outlines",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event feed and inbox watcher",
				Action: serve,
			},
			{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Default owner for tool calls"},
				},
				Action: serveMCP,
			},
			subjectsCommand(),
			{
				Name:  "inbox",
				Usage: "Inbox directory utilities",
				Commands: []*cli.Command{
					{
						Name:   "export",
						Usage:  "Write the inbox owner's subjects into the inbox directory",
						Action: exportInbox,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
