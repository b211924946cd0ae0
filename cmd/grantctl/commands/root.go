package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/oauth2grant/internal/app"
	"github.com/florianilch/oauth2grant/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand().Run(ctx, args)
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "grantctl",
		Usage: "Sign HTTP requests with stored OAuth2 access grants",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "log-exporter",
				Usage: "log exporter (none|stdout|otlp-http|otlp-grpc)",
				Value: app.DefaultConfigLogExporter,
			},
			&cli.StringFlag{
				Name:  "storage--type",
				Usage: "grant storage (file|env|keyring)",
				Value: string(app.DefaultConfigStorage),
			},
			&cli.StringFlag{
				Name:  "storage--file",
				Usage: "grant file for file storage",
			},
			&cli.StringFlag{
				Name:  "storage--env-key",
				Usage: "environment variable for env storage",
			},
			&cli.StringFlag{
				Name:  "storage--keyring-user",
				Usage: "keyring user for keyring storage",
			},
		},
		Commands: []*cli.Command{
			requestCommand(),
			tokenCommand(),
			redirectCommand(),
		},
	}
}

// setup loads configuration and installs logging. The returned cleanup
// flushes telemetry and must always be called.
func setup(ctx context.Context, cmd *cli.Command) (*app.Config, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat), cfg.LogExporter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(cmd.Root().ErrWriter, "flushing logs: %v\n", err)
		}
	}
	return cfg, cleanup, nil
}

// newApp is setup followed by app construction.
func newApp(ctx context.Context, cmd *cli.Command) (*app.App, *app.Config, func(), error) {
	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	application, err := app.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to create app: %w", err)
	}
	return application, cfg, cleanup, nil
}
