package ws

import (
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/wire"
)

type Config struct {
	// Framing is used for the error frames the gateway sends itself and
	// must match the registry's framing.
	Framing wire.Format
	// RequireToken makes the gateway check access_token against the
	// session verifier before upgrading.
	RequireToken   bool
	AllowedOrigins []string

	ReadLimit    int64
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int

	// RateLimit is the sustained inbound messages per second allowed per
	// connection, RateBurst the bucket size. Zero disables the limit.
	RateLimit float64
	RateBurst int
}

func DefaultConfig() Config {
	return Config{
		Framing:      wire.FormatLegacy,
		ReadLimit:    1 << 16,
		PingInterval: 15 * time.Second,
		PongWait:     30 * time.Second,
		WriteWait:    5 * time.Second,
		SendBuffer:   256,
		RateLimit:    5,
		RateBurst:    10,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Framing == "" {
		c.Framing = d.Framing
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = d.ReadLimit
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = 2 * c.PingInterval
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = 1
	}
}
