// Package room keeps the live membership of every lobby and fans chat and
// presence frames out to its participants.
package room

import (
	"cmp"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/internal/wire"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"
)

var ErrClosed = errors.New("room: registry closed")

// Registry maps lobby ids to rooms. The registry lock only guards the map;
// membership changes and broadcasts lock the single room involved, so rooms
// never serialize against each other. Lock order is room, then registry.
type Registry struct {
	mu     sync.Mutex
	rooms  map[int64]*room
	closed bool

	seq        atomic.Int64
	format     wire.Format
	now        func() time.Time
	maxContent int
	log        *slog.Logger
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:      make(map[int64]*room),
		format:     wire.FormatLegacy,
		now:        time.Now,
		maxContent: DefaultMaxContent,
		log:        logger.For("room"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join admits a participant. A previous participant of the same user in
// the same lobby is evicted and its connection closed with CloseSuperseded;
// no left notice is sent for it. Everyone else gets a joined notice.
func (r *Registry) Join(lobbyID, userID int64, username string, conn domain.ConnectionHandle) (*domain.Participant, error) {
	if lobbyID <= 0 || userID <= 0 || username == "" || conn == nil {
		return nil, domain.ErrInvalidParticipant
	}

	rm, err := r.acquire(lobbyID, true)
	if err != nil {
		return nil, err
	}

	now := r.now()
	p := &domain.Participant{
		LobbyID:  lobbyID,
		UserID:   userID,
		Username: username,
		JoinedAt: now,
		Conn:     conn,
	}

	prev := rm.members[userID]
	rm.members[userID] = p

	failed := r.fanout(rm, wire.JoinedFrame(lobbyID, username, now), userID)
	dropped := r.dropFailed(rm, failed)
	size := len(rm.members)
	rm.mu.Unlock()

	if prev != nil {
		r.log.Info("participant superseded", "lobby_id", lobbyID, "user_id", userID)
		_ = prev.Conn.Close(wire.CloseSuperseded, "superseded by a newer connection")
	}
	r.closeDropped(dropped)

	r.log.Debug("participant joined", "lobby_id", lobbyID, "user_id", userID, "members", size)
	return p, nil
}

// Leave removes the user's participant, closes its connection normally and
// tells the rest. Unknown users and lobbies are ignored.
func (r *Registry) Leave(lobbyID, userID int64) {
	rm, err := r.acquire(lobbyID, false)
	if err != nil || rm == nil {
		return
	}

	p, ok := rm.members[userID]
	if !ok {
		rm.mu.Unlock()
		return
	}
	dropped := r.removeLocked(rm, p)
	rm.mu.Unlock()

	_ = p.Conn.Close(wire.CloseNormal, "left lobby")
	r.closeDropped(dropped)
	r.log.Debug("participant left", "lobby_id", lobbyID, "user_id", userID)
}

// Detach removes p if it is still the current participant for its user.
// The gateway calls it when a transport goes away; a superseded connection
// closing must not remove its successor. The connection is not closed.
func (r *Registry) Detach(p *domain.Participant) bool {
	if p == nil {
		return false
	}
	rm, err := r.acquire(p.LobbyID, false)
	if err != nil || rm == nil {
		return false
	}

	if !rm.current(p) {
		rm.mu.Unlock()
		return false
	}
	dropped := r.removeLocked(rm, p)
	rm.mu.Unlock()

	r.closeDropped(dropped)
	r.log.Debug("participant detached", "lobby_id", p.LobbyID, "user_id", p.UserID)
	return true
}

// Broadcast stamps content with the next id and the current time and
// delivers it to every participant of the lobby, sender included. Content
// is relayed as sent; surrounding whitespace only counts for validation.
func (r *Registry) Broadcast(lobbyID int64, sender *domain.Participant, content string) (domain.ChatMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > r.maxContent {
		return domain.ChatMessage{}, domain.ErrMessageTooLong
	}
	if sender == nil || sender.LobbyID != lobbyID {
		return domain.ChatMessage{}, domain.ErrNotInRoom
	}

	rm, err := r.acquire(lobbyID, false)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if rm == nil {
		return domain.ChatMessage{}, domain.ErrNotInRoom
	}
	if !rm.current(sender) {
		rm.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrNotInRoom
	}

	msg := domain.ChatMessage{
		ID:        r.nextID(),
		LobbyID:   lobbyID,
		UserID:    sender.UserID,
		Username:  sender.Username,
		Content:   content,
		Timestamp: r.now(),
	}
	failed := r.fanout(rm, wire.ChatFrame(msg), 0)
	dropped := r.dropFailed(rm, failed)
	r.teardownLocked(rm)
	rm.mu.Unlock()

	r.closeDropped(dropped)
	return msg, nil
}

// Participants returns a snapshot ordered by join time.
func (r *Registry) Participants(lobbyID int64) []domain.Participant {
	rm, err := r.acquire(lobbyID, false)
	if err != nil || rm == nil {
		return nil
	}
	out := rm.snapshot()
	rm.mu.Unlock()

	slices.SortFunc(out, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}

// Rooms returns the ids of lobbies that currently have a live room.
func (r *Registry) Rooms() []int64 {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// Close tears every room down and closes all connections with
// CloseGoingAway. Later joins fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	rooms := r.rooms
	r.rooms = make(map[int64]*room)
	r.mu.Unlock()

	var conns []domain.ConnectionHandle
	for _, rm := range rooms {
		rm.mu.Lock()
		for _, p := range rm.members {
			conns = append(conns, p.Conn)
		}
		clear(rm.members)
		rm.dead = true
		rm.mu.Unlock()
	}

	for _, c := range conns {
		_ = c.Close(wire.CloseGoingAway, "server shutting down")
	}
	r.log.Info("registry closed", "rooms", len(rooms), "connections", len(conns))
}

// acquire returns the lobby's room locked. With create it makes the room on
// first use; without it a missing room yields nil.
func (r *Registry) acquire(lobbyID int64, create bool) (*room, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		rm, ok := r.rooms[lobbyID]
		if !ok {
			if !create {
				r.mu.Unlock()
				return nil, nil
			}
			rm = newRoom(lobbyID)
			r.rooms[lobbyID] = rm
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if !rm.dead {
			return rm, nil
		}
		// комнату успели снести между двумя локами, пробуем заново
		rm.mu.Unlock()
	}
}

// removeLocked deletes p, announces it and tears the room down if empty.
func (r *Registry) removeLocked(rm *room, p *domain.Participant) []*domain.Participant {
	delete(rm.members, p.UserID)
	failed := r.fanout(rm, wire.LeftFrame(rm.lobbyID, p.Username, r.now()), 0)
	dropped := r.dropFailed(rm, failed)
	r.teardownLocked(rm)
	return dropped
}

func (r *Registry) teardownLocked(rm *room) {
	if len(rm.members) > 0 {
		return
	}
	rm.dead = true

	r.mu.Lock()
	if r.rooms[rm.lobbyID] == rm {
		delete(r.rooms, rm.lobbyID)
	}
	r.mu.Unlock()
}

// fanout delivers fr to every member except skipUserID and returns the
// members whose delivery failed.
func (r *Registry) fanout(rm *room, fr wire.Frame, skipUserID int64) []*domain.Participant {
	data, err := wire.Encode(r.format, fr)
	if err != nil {
		if !errors.Is(err, wire.ErrNotRepresentable) {
			r.log.Error("encode frame failed", "lobby_id", rm.lobbyID, "kind", fr.Kind, "err", err)
		}
		return nil
	}

	var failed []*domain.Participant
	for uid, p := range rm.members {
		if uid == skipUserID {
			continue
		}
		if err := p.Conn.Deliver(data); err != nil {
			r.log.Warn("delivery failed", "lobby_id", rm.lobbyID, "user_id", uid, "kind", fr.Kind, "err", err)
			failed = append(failed, p)
		}
	}
	return failed
}

// dropFailed treats every failed participant as having left. Announcing a
// departure can fail further deliveries, so it repeats until none fail.
func (r *Registry) dropFailed(rm *room, failed []*domain.Participant) []*domain.Participant {
	var dropped []*domain.Participant
	for len(failed) > 0 {
		var round []*domain.Participant
		for _, p := range failed {
			if !rm.current(p) {
				continue
			}
			delete(rm.members, p.UserID)
			round = append(round, p)
		}
		dropped = append(dropped, round...)

		failed = nil
		for _, p := range round {
			failed = append(failed, r.fanout(rm, wire.LeftFrame(rm.lobbyID, p.Username, r.now()), 0)...)
		}
	}
	return dropped
}

func (r *Registry) closeDropped(dropped []*domain.Participant) {
	for _, p := range dropped {
		_ = p.Conn.Close(wire.CloseDeliveryFailed, "delivery failed")
	}
}

func (r *Registry) nextID() int64 {
	return r.seq.Add(1)
}
