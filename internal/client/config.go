package client

import (
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
)

// Policy controls automatic reconnection after an unclean transport loss.
// The zero Policy means DefaultPolicy. Otherwise MaxAttempts 0 disables
// reconnection.
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{Base: time.Second, Cap: 30 * time.Second, MaxAttempts: 5}
}

// Delay returns min(Base*2^attempt, Cap).
func (p Policy) Delay(attempt int) time.Duration {
	b := &backoff.Backoff{Min: p.Base, Max: p.Cap, Factor: 2}
	return b.ForAttempt(float64(attempt))
}

type Config struct {
	// URL is the websocket base, e.g. ws://localhost:8080/api/ws. The lobby
	// id is appended as a path segment.
	URL string
	// Token is sent as access_token when the gateway requires sessions.
	Token string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Reconnect        Policy
	// DedupWindow is how many delivered message ids are remembered.
	DedupWindow int

	Logger *slog.Logger
	// Dialer overrides the websocket dialer built from URL and Token.
	Dialer Dialer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		Reconnect:        DefaultPolicy(),
		DedupWindow:      1024,
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Reconnect == (Policy{}) {
		c.Reconnect = def.Reconnect
	}
	if c.Reconnect.Base <= 0 {
		c.Reconnect.Base = def.Reconnect.Base
	}
	if c.Reconnect.Cap <= 0 {
		c.Reconnect.Cap = def.Reconnect.Cap
	}
	if c.Reconnect.Cap < c.Reconnect.Base {
		c.Reconnect.Cap = c.Reconnect.Base
	}
	if c.Reconnect.MaxAttempts < 0 {
		c.Reconnect.MaxAttempts = 0
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = def.DedupWindow
	}
}
