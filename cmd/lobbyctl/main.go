// Command lobbyctl is a terminal client for the lobby chat server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/lobby-chat/pkg/logger"

	"github.com/gookit/color"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		color.Fprintln(os.Stderr, color.Red.Sprintf("lobbyctl: %v", err))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "lobbyctl",
		Usage: "talk to a lobby chat server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "server base URL",
				Sources: cli.EnvVars("LOBBYCTL_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "access token for authenticated calls",
				Sources: cli.EnvVars("LOBBYCTL_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log transport events to stderr",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			lvl := slog.LevelWarn
			if cmd.Bool("debug") {
				lvl = slog.LevelDebug
			}
			logger.Init(logger.Config{
				Service: "lobbyctl",
				Env:     logger.EnvDev,
				Backend: logger.BackendStd,
				Level:   lvl,
				Output:  os.Stderr,
			})
			return ctx, nil
		},
		Commands: []*cli.Command{
			signupCommand(),
			loginCommand(),
			lobbiesCommand(),
			lobbyCommand(),
			joinCommand(),
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Sources: cli.EnvVars("LOBBYCTL_PASSWORD")},
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "create an account and print its token",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := api(cmd).signup(ctx, cmd.String("username"), cmd.String("password"))
			if err != nil {
				return err
			}
			printSession(cmd, s)
			return nil
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in and print a fresh token",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := api(cmd).login(ctx, cmd.String("username"), cmd.String("password"))
			if err != nil {
				return err
			}
			printSession(cmd, s)
			return nil
		},
	}
}

func lobbiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "lobbies",
		Usage: "list lobbies",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "cursor"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			page, err := api(cmd).lobbies(ctx, int(cmd.Int("limit")), cmd.String("cursor"))
			if err != nil {
				return err
			}
			renderLobbies(cmd.Root().Writer, page.Lobbies)
			if page.NextCursor != "" {
				fmt.Fprintf(cmd.Root().Writer, "\nnext: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}
}

func lobbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "lobby",
		Usage: "manage lobbies",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create a lobby owned by the token's user",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("lobby name is required")
					}
					if cmd.String("token") == "" {
						return fmt.Errorf("--token is required")
					}
					l, err := api(cmd).createLobby(ctx, name)
					if err != nil {
						return err
					}
					renderLobbies(cmd.Root().Writer, []lobby{l})
					return nil
				},
			},
		},
	}
}

func joinCommand() *cli.Command {
	return &cli.Command{
		Name:  "join",
		Usage: "join a lobby and chat from stdin",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "lobby", Aliases: []string{"l"}, Required: true},
			&cli.Int64Flag{Name: "user", Usage: "user id; taken from --username login when unset"},
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Sources: cli.EnvVars("LOBBYCTL_PASSWORD")},
			&cli.StringFlag{Name: "ws", Usage: "websocket base URL, derived from --server when unset"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			userID, token := cmd.Int64("user"), cmd.String("token")
			if cmd.String("username") != "" {
				s, err := api(cmd).login(ctx, cmd.String("username"), cmd.String("password"))
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				userID, token = s.ID, s.Token
			}
			if userID <= 0 {
				return fmt.Errorf("either --user or --username is required")
			}

			target := cmd.String("ws")
			if target == "" {
				var err error
				if target, err = wsURL(cmd.String("server")); err != nil {
					return err
				}
			}

			return chat(ctx, chatOptions{
				URL:     target,
				Token:   token,
				LobbyID: cmd.Int64("lobby"),
				UserID:  userID,
				In:      os.Stdin,
				Out:     cmd.Root().Writer,
			})
		},
	}
}

func api(cmd *cli.Command) *apiClient {
	return newAPIClient(cmd.String("server"), cmd.String("token"))
}

func printSession(cmd *cli.Command, s session) {
	w := cmd.Root().Writer
	fmt.Fprintf(w, "%s %s (id %d)\n", color.Green.Sprint("logged in as"), s.Username, s.ID)
	fmt.Fprintf(w, "token:   %s\n", s.Token)
	fmt.Fprintf(w, "expires: %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
}
