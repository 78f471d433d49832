package domain

import "time"

// ChatMessage is one line of lobby chat. Presence notices reuse the shape
// with UserID 0.
type ChatMessage struct {
	ID        int64     `json:"id"`
	LobbyID   int64     `json:"lobby_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
