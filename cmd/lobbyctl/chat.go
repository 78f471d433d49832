package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cwrk-planet/lobby-chat/internal/client"
	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"
)

type chatOptions struct {
	URL     string
	Token   string
	LobbyID int64
	UserID  int64
	In      io.Reader
	Out     io.Writer

	// Dialer replaces the websocket dialer in tests.
	Dialer client.Dialer
}

// chat runs an interactive session until stdin ends, the user types /quit,
// ctx is cancelled or the connection gives up.
func chat(ctx context.Context, opts chatOptions) error {
	cfg := client.DefaultConfig()
	cfg.URL = opts.URL
	cfg.Token = opts.Token
	cfg.Dialer = opts.Dialer
	cfg.Logger = logger.For("lobbyctl")

	conn, err := client.New(cfg)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	p := printer{w: opts.Out, self: opts.UserID}
	dead := make(chan error, 1)

	conn.OnMessage(p.message)
	conn.OnUserJoined(p.joined)
	conn.OnUserLeft(p.left)
	conn.OnError(func(err error) {
		p.failure(err)
		var te *client.TransportError
		if errors.As(err, &te) && te.Terminal {
			select {
			case dead <- err:
			default:
			}
		}
	})

	if err := conn.Connect(ctx, opts.LobbyID, opts.UserID); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(opts.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-dead:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == "/quit":
				return nil
			}
			if err := conn.Send(ctx, line); err != nil {
				if errors.Is(err, domain.ErrEmptyMessage) {
					continue
				}
				p.failure(err)
			}
		}
	}
}
