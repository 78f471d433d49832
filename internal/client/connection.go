// Package client is the lobby chat client: one Connection per open lobby,
// with automatic reconnection, duplicate suppression and listener fan-out.
package client

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/internal/wire"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"
)

// link is one open transport together with the cancel func of its read loop.
type link struct {
	t      Transport
	cancel context.CancelFunc
}

// Connection binds a client to one (lobby, user) pair.
//
// Every state change bumps epoch. Timers and dials carry the epoch they
// were started under and drop their result if it moved on, so nothing
// started before Disconnect can resurrect the connection.
type Connection struct {
	cfg    Config
	dialer Dialer
	log    *slog.Logger
	dedup  *window

	mu         sync.Mutex
	state      State
	lobbyID    int64
	userID     int64
	attempts   int
	epoch      uint64
	link       *link
	timer      *time.Timer
	cancelDial context.CancelFunc

	closed atomic.Bool

	onMessage listeners[domain.ChatMessage]
	onJoined  listeners[string]
	onLeft    listeners[string]
	onError   listeners[error]
}

func New(cfg Config) (*Connection, error) {
	cfg.normalize()

	d := cfg.Dialer
	if d == nil {
		var err error
		d, err = NewWebsocketDialer(cfg.URL, cfg.Token, cfg.WriteTimeout)
		if err != nil {
			return nil, err
		}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.For("client")
	}

	return &Connection{
		cfg:    cfg,
		dialer: d,
		log:    log,
		dedup:  newWindow(cfg.DedupWindow),
	}, nil
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts is the number of reconnect attempts since the last open.
func (c *Connection) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// OnMessage subscribes to chat messages. Listeners run on the read loop
// and must return quickly.
func (c *Connection) OnMessage(fn func(domain.ChatMessage)) Unsubscribe { return c.onMessage.add(fn) }
func (c *Connection) OnUserJoined(fn func(username string)) Unsubscribe { return c.onJoined.add(fn) }
func (c *Connection) OnUserLeft(fn func(username string)) Unsubscribe   { return c.onLeft.add(fn) }

// OnError receives *TransportError, *ServerError values.
func (c *Connection) OnError(fn func(error)) Unsubscribe { return c.onError.add(fn) }

// Connect opens the connection for lobbyID as userID and blocks until the
// transport is open or the dial failed. A failed Connect leaves the
// connection Disconnected and does not schedule retries.
func (c *Connection) Connect(ctx context.Context, lobbyID, userID int64) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if lobbyID <= 0 || userID <= 0 {
		return ErrInvalidTarget
	}

	c.mu.Lock()
	same := c.lobbyID == lobbyID && c.userID == userID
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateOpen:
		c.mu.Unlock()
		if same {
			return nil
		}
		return ErrLobbyMismatch
	case StateConnecting:
		c.mu.Unlock()
		return ErrConnectInProgress
	case StateReconnecting:
		if !same {
			c.mu.Unlock()
			return ErrLobbyMismatch
		}
		c.stopTimerLocked()
	}

	c.lobbyID, c.userID = lobbyID, userID
	c.state = StateConnecting
	c.epoch++
	epoch := c.epoch
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	c.mu.Unlock()

	t, err := c.dial(dialCtx, lobbyID, userID)
	cancel()

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		discard(t)
		return ErrClosed
	}
	c.cancelDial = nil
	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warn("connect failed", "lobby_id", lobbyID, "user_id", userID, "err", err)
		return &ConnectError{LobbyID: lobbyID, UserID: userID, Err: err}
	}
	c.openLocked(t)
	c.mu.Unlock()

	c.log.Info("connected", "lobby_id", lobbyID, "user_id", userID)
	return nil
}

// Send publishes content to the lobby. It fails with *NotConnectedError
// without touching the transport unless the connection is open.
func (c *Connection) Send(ctx context.Context, content string) error {
	c.mu.Lock()
	if c.state != StateOpen || c.link == nil {
		st := c.state
		c.mu.Unlock()
		return &NotConnectedError{State: st}
	}
	l := c.link
	c.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyMessage
	}

	frame, err := wire.EncodeRequest(content)
	if err != nil {
		return err
	}
	if err := l.t.Write(ctx, frame); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Disconnect closes the connection for good. After it returns no listener
// is invoked and no reconnect happens. It is safe to call more than once.
func (c *Connection) Disconnect() {
	if c.closed.Swap(true) {
		return
	}

	c.mu.Lock()
	c.state = StateClosed
	c.epoch++
	c.stopTimerLocked()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	l := c.link
	c.link = nil
	c.mu.Unlock()

	if l != nil {
		go func() {
			_ = l.t.Close(wire.CloseNormal, "client disconnect")
			l.cancel()
		}()
	}
	c.log.Debug("disconnected")
}

func (c *Connection) dial(ctx context.Context, lobbyID, userID int64) (Transport, error) {
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}
	return c.dialer.Dial(ctx, lobbyID, userID)
}

func (c *Connection) openLocked(t Transport) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &link{t: t, cancel: cancel}
	c.link = l
	c.state = StateOpen
	c.attempts = 0

	go c.readLoop(ctx, c.epoch, l)
}

func (c *Connection) readLoop(ctx context.Context, epoch uint64, l *link) {
	for {
		data, err := l.t.Read(ctx)
		if err != nil {
			c.lost(epoch, l, err)
			return
		}
		if c.closed.Load() {
			return
		}
		c.handle(data)
	}
}

func (c *Connection) handle(data []byte) {
	fr, err := wire.Decode(data)
	if err != nil {
		c.log.Warn("dropping malformed frame", "err", err)
		return
	}

	switch fr.Kind {
	case wire.KindChat:
		if !c.dedup.admit(fr.Message.ID) {
			c.log.Debug("dropping duplicate message", "id", fr.Message.ID)
			return
		}
		emit(c, &c.onMessage, fr.Message)
	case wire.KindJoined:
		emit(c, &c.onJoined, fr.Username)
	case wire.KindLeft:
		emit(c, &c.onLeft, fr.Username)
	case wire.KindError:
		if fr.Error != nil {
			emit[error](c, &c.onError, &ServerError{Code: fr.Error.Code, Message: fr.Error.Message})
		}
	}
}

// lost runs on the read loop once the transport fails.
func (c *Connection) lost(epoch uint64, l *link, cause error) {
	c.mu.Lock()
	if c.epoch != epoch || c.link != l {
		c.mu.Unlock()
		return
	}
	c.link = nil
	l.cancel()

	var ev *TransportError
	if isCleanClose(cause) {
		c.state = StateDisconnected
		c.epoch++
		ev = &TransportError{Err: cause, Terminal: true}
	} else {
		ev = c.retryLocked(cause)
	}
	c.mu.Unlock()

	_ = l.t.Close(wire.CloseNormal, "")
	c.log.Warn("transport lost", "err", cause, "terminal", ev.Terminal, "attempt", ev.Attempt, "delay", ev.Delay)
	emit[error](c, &c.onError, ev)
}

// retryLocked schedules the next reconnect attempt, or gives up once the
// attempt budget is spent.
func (c *Connection) retryLocked(cause error) *TransportError {
	if c.attempts >= c.cfg.Reconnect.MaxAttempts {
		c.state = StateDisconnected
		c.epoch++
		return &TransportError{Err: cause, Attempt: c.attempts, Terminal: true, Exhausted: true}
	}

	delay := c.cfg.Reconnect.Delay(c.attempts)
	c.state = StateReconnecting
	c.epoch++
	epoch := c.epoch
	c.timer = time.AfterFunc(delay, func() { c.reconnect(epoch) })

	return &TransportError{Err: cause, Attempt: c.attempts + 1, Delay: delay}
}

func (c *Connection) reconnect(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.attempts++
	c.state = StateConnecting
	c.epoch++
	epoch = c.epoch
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	lobbyID, userID, attempt := c.lobbyID, c.userID, c.attempts
	c.mu.Unlock()

	c.log.Info("reconnecting", "lobby_id", lobbyID, "user_id", userID, "attempt", attempt)
	t, err := c.dial(ctx, lobbyID, userID)
	cancel()

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		discard(t)
		return
	}
	c.cancelDial = nil
	if err != nil {
		ev := c.retryLocked(err)
		c.mu.Unlock()
		c.log.Warn("reconnect failed", "attempt", attempt, "err", err, "terminal", ev.Terminal)
		emit[error](c, &c.onError, ev)
		return
	}
	c.openLocked(t)
	c.mu.Unlock()

	c.log.Info("reconnected", "lobby_id", lobbyID, "user_id", userID, "attempt", attempt)
}

func (c *Connection) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func emit[T any](c *Connection, ls *listeners[T], v T) {
	for _, fn := range ls.snapshot() {
		if c.closed.Load() {
			return
		}
		fn(v)
	}
}

func isCleanClose(err error) bool {
	var ce *CloseError
	return errors.As(err, &ce) && wire.IsCleanClose(ce.Code)
}

func discard(t Transport) {
	if t != nil {
		_ = t.Close(wire.CloseNormal, "connection discarded")
	}
}
