package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxLobbyNameLength matches the lobbies.name column.
const MaxLobbyNameLength = 50

type Lobby struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   int64     `db:"owner_id" json:"owner_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func NormalizeLobbyName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxLobbyNameLength {
		return "", ErrInvalidLobbyName
	}
	return name, nil
}
