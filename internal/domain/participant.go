package domain

import "time"

// ConnectionHandle is the server side of one live client transport.
// Deliver must not block; Close must be safe to call more than once.
type ConnectionHandle interface {
	Deliver(frame []byte) error
	Close(code int, reason string) error
}

type Participant struct {
	LobbyID  int64            `json:"lobby_id"`
	UserID   int64            `json:"user_id"`
	Username string           `json:"username"`
	JoinedAt time.Time        `json:"joined_at"`
	Conn     ConnectionHandle `json:"-"`
}
