package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/oauth2grant/internal/grant"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "inspect, store and refresh the grant",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "print the stored grant as a token response",
				Action: tokenShowAction,
			},
			{
				Name:  "save",
				Usage: "store a grant; the access token (and MAC key) are read from the terminal or stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "grant--scheme",
						Aliases: []string{"scheme"},
						Usage:   "grant scheme (bearer|mac|legacy)",
					},
					&cli.StringFlag{
						Name:  "grant--mac-algorithm",
						Usage: "MAC algorithm (hmac-sha-1|hmac-sha-256)",
					},
					&cli.StringFlag{
						Name:  "refresh-token",
						Usage: "refresh token issued with the grant",
					},
					&cli.StringFlag{
						Name:  "expires-in",
						Usage: "lifetime in seconds",
					},
					&cli.StringFlag{
						Name:  "scope",
						Usage: "space-separated scope",
					},
				},
				Action: tokenSaveAction,
			},
			{
				Name:  "refresh",
				Usage: "exchange the stored refresh token and store the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "refresh--token-url",
						Usage: "token endpoint",
					},
					&cli.StringFlag{
						Name:  "refresh--client-id",
						Usage: "OAuth2 client identifier",
					},
				},
				Action: tokenRefreshAction,
			},
		},
	}
}

func tokenShowAction(ctx context.Context, cmd *cli.Command) error {
	application, _, cleanup, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	g, err := application.Grant()
	if err != nil {
		return err
	}
	return printTokenResponse(cmd.Root().Writer, g)
}

func tokenSaveAction(ctx context.Context, cmd *cli.Command) error {
	application, cfg, cleanup, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	secrets := newSecretReader(cmd.Root().Reader, cmd.Root().ErrWriter)

	accessToken, err := secrets.read("Access token: ")
	if err != nil {
		return fmt.Errorf("reading access token: %w", err)
	}

	attrs := grant.Attributes{
		grant.KeyAccessToken:  accessToken,
		grant.KeyTokenType:    string(cfg.Grant.Scheme),
		grant.KeyRefreshToken: cmd.String("refresh-token"),
		grant.KeyExpiresIn:    cmd.String("expires-in"),
		grant.KeyScope:        cmd.String("scope"),
	}
	if cfg.Grant.Scheme == grant.SchemeMAC {
		macKey, err := secrets.read("MAC key: ")
		if err != nil {
			return fmt.Errorf("reading MAC key: %w", err)
		}
		attrs[grant.KeyMACKey] = macKey
		attrs[grant.KeyMACAlgorithm] = string(cfg.Grant.MACAlgorithm)
	}
	for key, value := range attrs {
		if value == "" {
			delete(attrs, key)
		}
	}

	g, err := application.Save(ctx, attrs)
	if err != nil {
		return err
	}
	return printTokenResponse(cmd.Root().Writer, g)
}

func tokenRefreshAction(ctx context.Context, cmd *cli.Command) error {
	application, _, cleanup, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	g, err := application.Refresh(ctx)
	if err != nil {
		return err
	}
	return printTokenResponse(cmd.Root().Writer, g)
}

func printTokenResponse(w io.Writer, g grant.AccessGrant) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.TokenResponse())
}

// secretReader reads secrets without echo from a terminal, or line by line
// from any other input.
type secretReader struct {
	in     io.Reader
	prompt io.Writer
	lines  *bufio.Reader
}

func newSecretReader(in io.Reader, prompt io.Writer) *secretReader {
	if in == nil {
		in = os.Stdin
	}
	return &secretReader{in: in, prompt: prompt, lines: bufio.NewReader(in)}
}

func (s *secretReader) read(prompt string) (string, error) {
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(s.prompt, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(s.prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := s.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
