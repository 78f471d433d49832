// Package wire defines the frames exchanged between lobby chat clients and
// the realtime gateway, in both the legacy bare-message framing and the
// tagged envelope framing.
package wire

import (
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
)

type Kind string

const (
	KindChat   Kind = "chat"   // обычное сообщение
	KindJoined Kind = "joined" // пользователь вошёл в лобби
	KindLeft   Kind = "left"   // пользователь вышел
	KindError  Kind = "error"  // ошибка обработки запроса клиента
)

// System identity used by presence notices in legacy framing.
const (
	SystemUserID   int64 = 0
	SystemUsername       = "System"
)

// Error codes carried by error frames.
const (
	CodeEmptyMessage   = "empty_message"
	CodeMessageTooLong = "message_too_long"
	CodeNotInRoom      = "not_in_room"
	CodeRateLimited    = "rate_limited"
	CodeMalformed      = "malformed_frame"
	CodeInternal       = "internal"
)

// Request is the only client to server frame.
type Request struct {
	Content string `json:"content"`
}

type envelope struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload"`
}

type PresencePayload struct {
	ID        int64     `json:"id,omitempty"`
	LobbyID   int64     `json:"lobby_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame is a decoded server to client frame.
//
// For presence kinds Message is the system notice and Username is the user
// who joined or left.
type Frame struct {
	Kind     Kind
	Message  domain.ChatMessage
	Username string
	Error    *ErrorPayload
}

func ChatFrame(msg domain.ChatMessage) Frame {
	return Frame{Kind: KindChat, Message: msg}
}

// JoinedFrame builds a presence notice. Presence carries no sequence id,
// only chat messages are numbered.
func JoinedFrame(lobbyID int64, username string, ts time.Time) Frame {
	return presenceFrame(KindJoined, 0, lobbyID, username, JoinedContent(username), ts)
}

func LeftFrame(lobbyID int64, username string, ts time.Time) Frame {
	return presenceFrame(KindLeft, 0, lobbyID, username, LeftContent(username), ts)
}

func ErrorFrame(code, message string) Frame {
	return Frame{Kind: KindError, Error: &ErrorPayload{Code: code, Message: message}}
}

func presenceFrame(kind Kind, id, lobbyID int64, username, content string, ts time.Time) Frame {
	return Frame{
		Kind: kind,
		Message: domain.ChatMessage{
			ID:        id,
			LobbyID:   lobbyID,
			UserID:    SystemUserID,
			Username:  SystemUsername,
			Content:   content,
			Timestamp: ts,
		},
		Username: username,
	}
}
