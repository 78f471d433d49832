package http

import (
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"

	"github.com/samber/lo"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

type createLobbyRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type sessionResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type lobbyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type lobbyListResponse struct {
	Lobbies    []lobbyResponse `json:"lobbies"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type participantResponse struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type participantsResponse struct {
	LobbyID      int64                 `json:"lobby_id"`
	Participants []participantResponse `json:"participants"`
}

func toSession(s domain.Session) sessionResponse {
	return sessionResponse{ID: s.UserID, Username: s.Username, Token: s.Token, ExpiresAt: s.ExpiresAt}
}

func toLobby(l domain.Lobby) lobbyResponse {
	return lobbyResponse{ID: l.ID, Name: l.Name, OwnerID: l.OwnerID, CreatedAt: l.CreatedAt}
}

func toLobbies(ls []domain.Lobby) []lobbyResponse {
	return lo.Map(ls, func(l domain.Lobby, _ int) lobbyResponse { return toLobby(l) })
}

func toParticipants(ps []domain.Participant) []participantResponse {
	return lo.Map(ps, func(p domain.Participant, _ int) participantResponse {
		return participantResponse{UserID: p.UserID, Username: p.Username, JoinedAt: p.JoinedAt}
	})
}
