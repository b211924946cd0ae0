package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/oauth2grant/internal/redirecturi"
)

func redirectCommand() *cli.Command {
	baseFlag := &cli.StringFlag{
		Name:  "redirect--base-uri",
		Usage: "registered redirect URI",
	}

	return &cli.Command{
		Name:  "redirect",
		Usage: "build and check redirect URIs",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "append parameters to the registered redirect URI",
				Flags: []cli.Flag{
					baseFlag,
					&cli.StringFlag{
						Name:  "location",
						Usage: "where parameters go (query|fragment)",
						Value: string(redirecturi.LocationQuery),
					},
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "parameter key=value (repeatable)",
					},
				},
				Action: redirectBuildAction,
			},
			{
				Name:      "check",
				Usage:     "exit non-zero unless CANDIDATE is covered by the registered redirect URI",
				ArgsUsage: "CANDIDATE",
				Flags:     []cli.Flag{baseFlag},
				Action:    redirectCheckAction,
			},
		},
	}
}

func redirectBuildAction(ctx context.Context, cmd *cli.Command) error {
	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Redirect.BaseURI == "" {
		return errors.New("redirect.base_uri is required")
	}
	loc, err := redirecturi.ParseLocation(cmd.String("location"))
	if err != nil {
		return err
	}
	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	uri, err := redirecturi.Build(cfg.Redirect.BaseURI, loc, params)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, uri)
	return nil
}

func redirectCheckAction(ctx context.Context, cmd *cli.Command) error {
	cfg, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Redirect.BaseURI == "" {
		return errors.New("redirect.base_uri is required")
	}
	if cmd.Args().Len() != 1 {
		return errors.New("exactly one candidate URI is required")
	}

	candidate := cmd.Args().First()
	if !redirecturi.IsTrusted(cfg.Redirect.BaseURI, candidate) {
		return cli.Exit(fmt.Sprintf("untrusted: %s", candidate), 1)
	}
	fmt.Fprintf(cmd.Root().Writer, "trusted: %s\n", candidate)
	return nil
}
