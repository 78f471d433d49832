package room

import (
	"log/slog"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/wire"
)

const DefaultMaxContent = 4000

type Option func(*Registry)

// WithFormat selects the framing used for every frame the registry sends.
func WithFormat(f wire.Format) Option {
	return func(r *Registry) { r.format = f }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSequenceStart sets the value the message id sequence starts from;
// the first chat message gets start+1.
func WithSequenceStart(start int64) Option {
	return func(r *Registry) { r.seq.Store(start) }
}

func WithMaxContent(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxContent = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}
