package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/wire"

	"github.com/gorilla/websocket"
)

var (
	ErrSlowConsumer = errors.New("ws: send buffer full")
	ErrConnClosed   = errors.New("ws: connection closed")
)

// conn is the server side of one websocket. The write pump is the only
// goroutine that writes to ws, close frames included.
type conn struct {
	ws  *websocket.Conn
	cfg Config
	log *slog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once

	// set once before done is closed
	closeCode   int
	closeReason string

	pumpDone chan struct{}
}

func newConn(ws *websocket.Conn, cfg Config, log *slog.Logger) *conn {
	return &conn{
		ws:       ws,
		cfg:      cfg,
		log:      log,
		send:     make(chan []byte, cfg.SendBuffer),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
}

// Deliver queues frame without blocking.
func (c *conn) Deliver(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

// Close asks the write pump to flush and close with code. Only the first
// call decides the code.
func (c *conn) Close(code int, reason string) error {
	c.once.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
	return nil
}

func (c *conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.pumpDone)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				c.log.Debug("ws write failed", "err", err)
				_ = c.Close(wire.CloseGoingAway, "")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.log.Debug("ws ping failed", "err", err)
				_ = c.Close(wire.CloseGoingAway, "")
				return
			}
		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

// flush writes whatever was queued before the close was requested.
func (c *conn) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *conn) write(frame []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func deadline(d time.Duration) time.Time {
	return time.Now().Add(d)
}
