package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/oauth2grant/internal/app"
)

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "send signed requests with the stored grant",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Usage:   "HTTP method (GET|POST|PUT|DELETE)",
				Value:   http.MethodGet,
			},
			&cli.StringSliceFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "form parameter key=value for POST and PUT (repeatable)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "maximum parallel requests",
				Value: app.DefaultConfigConcurrency,
			},
			&cli.DurationFlag{
				Name:  "http--timeout",
				Usage: "per-request timeout",
				Value: app.DefaultConfigHTTPTimeout,
			},
			&cli.StringFlag{
				Name:  "http--user-agent",
				Usage: "override the User-Agent header",
			},
			&cli.BoolFlag{
				Name:  "http--trace-propagation",
				Usage: "send W3C trace context headers",
			},
		},
		Action: requestAction,
	}
}

func requestAction(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return errors.New("at least one URL is required")
	}
	form, err := parseParams(cmd.StringSlice("data"))
	if err != nil {
		return err
	}

	application, _, cleanup, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	reqs := make([]app.Request, 0, len(urls))
	for _, u := range urls {
		reqs = append(reqs, app.Request{Method: cmd.String("method"), URL: u, Form: form})
	}

	results, err := application.Send(ctx, reqs)
	if err != nil {
		return fmt.Errorf("sending requests: %w", err)
	}

	w := cmd.Root().Writer
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(w, "ERR %s %s: %v\n", res.Request.Method, res.Request.URL, res.Err)
			continue
		}
		fmt.Fprintf(w, "%d %s %s (%d bytes)\n", res.Status, res.Request.Method, res.Request.URL, res.Bytes)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(results))
	}
	return nil
}
