package service_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
)

type memUsers struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Username == u.Username {
			return domain.ErrUsernameTaken
		}
	}
	u.ID = int64(len(m.users) + 1)
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Username == username {
			return &x, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetUsernameByID(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.ID == id {
			return x.Username, nil
		}
	}
	return "", domain.ErrUserNotFound
}

type memLobbies struct {
	mu      sync.Mutex
	lobbies []domain.Lobby
	now     time.Time
}

func (m *memLobbies) Create(_ context.Context, l *domain.Lobby) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.lobbies {
		if x.Name == l.Name {
			return domain.ErrLobbyNameTaken
		}
	}
	l.ID = int64(len(m.lobbies) + 1)
	l.CreatedAt = m.now
	m.lobbies = append(m.lobbies, *l)
	return nil
}

func (m *memLobbies) Get(_ context.Context, id int64) (*domain.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.lobbies {
		if x.ID == id {
			return &x, nil
		}
	}
	return nil, domain.ErrLobbyNotFound
}

// List ignores the cursor and returns newest first.
func (m *memLobbies) List(_ context.Context, limit int, _ string) ([]domain.Lobby, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.lobbies)
	slices.Reverse(out)
	if len(out) > limit {
		return out[:limit], "next", nil
	}
	return out, "", nil
}

type staticRoster map[int64][]domain.Participant

func (r staticRoster) Participants(id int64) []domain.Participant { return r[id] }
