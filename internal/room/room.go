package room

import (
	"sync"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
)

// room is the live membership of one lobby. All fields are guarded by mu,
// which also serializes id assignment and fan-out for the lobby.
type room struct {
	lobbyID int64

	mu      sync.Mutex
	members map[int64]*domain.Participant // userID -> participant
	dead    bool                          // removed from the registry map
}

func newRoom(lobbyID int64) *room {
	return &room{
		lobbyID: lobbyID,
		members: make(map[int64]*domain.Participant),
	}
}

func (rm *room) current(p *domain.Participant) bool {
	return p != nil && rm.members[p.UserID] == p
}

func (rm *room) snapshot() []domain.Participant {
	out := make([]domain.Participant, 0, len(rm.members))
	for _, p := range rm.members {
		out = append(out, *p)
	}
	return out
}
