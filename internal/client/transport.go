package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// Transport is one established connection to the gateway.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
	Close(code int, reason string) error
}

type Dialer interface {
	Dial(ctx context.Context, lobbyID, userID int64) (Transport, error)
}

const maxFrameSize = 1 << 20

type wsDialer struct {
	base         *url.URL
	token        string
	writeTimeout time.Duration
}

// NewWebsocketDialer dials <base>/<lobbyID>?userID=<userID>.
func NewWebsocketDialer(base, token string, writeTimeout time.Duration) (Dialer, error) {
	if base == "" {
		return nil, errors.New("client: empty URL")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("client: parse URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return nil, fmt.Errorf("client: unsupported URL scheme %q", u.Scheme)
	}
	return &wsDialer{base: u, token: token, writeTimeout: writeTimeout}, nil
}

func (d *wsDialer) Dial(ctx context.Context, lobbyID, userID int64) (Transport, error) {
	u := *d.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strconv.FormatInt(lobbyID, 10)

	q := u.Query()
	q.Set("userID", strconv.FormatInt(userID, 10))
	if d.token != "" {
		q.Set("access_token", d.token)
	}
	u.RawQuery = q.Encode()

	ws, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxFrameSize)

	return &wsTransport{ws: ws, writeTimeout: d.writeTimeout}, nil
}

type wsTransport struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := t.ws.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				return nil, &CloseError{Code: int(ce.Code), Reason: ce.Reason}
			}
			return nil, err
		}
		if typ == websocket.MessageText {
			return data, nil
		}
	}
}

func (t *wsTransport) Write(ctx context.Context, frame []byte) error {
	if t.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.writeTimeout)
		defer cancel()
	}
	return t.ws.Write(ctx, websocket.MessageText, frame)
}

func (t *wsTransport) Close(code int, reason string) error {
	return t.ws.Close(websocket.StatusCode(code), reason)
}
