package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"
)

type LobbyStore interface {
	Create(ctx context.Context, l *domain.Lobby) error
	Get(ctx context.Context, id int64) (*domain.Lobby, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Lobby, string, error)
}

// Roster is the live membership view, normally the room registry.
type Roster interface {
	Participants(lobbyID int64) []domain.Participant
}

type LobbyService struct {
	lobbies LobbyStore
	roster  Roster
	log     *slog.Logger
}

func NewLobbyService(lobbies LobbyStore, roster Roster) *LobbyService {
	return &LobbyService{
		lobbies: lobbies,
		roster:  roster,
		log:     logger.For("lobby"),
	}
}

// Create создаёт лобби с уникальным именем.
func (s *LobbyService) Create(ctx context.Context, name string, ownerID int64) (domain.Lobby, error) {
	name, err := domain.NormalizeLobbyName(name)
	if err != nil {
		return domain.Lobby{}, err
	}

	l := &domain.Lobby{Name: name, OwnerID: ownerID}
	if err := s.lobbies.Create(ctx, l); err != nil {
		return domain.Lobby{}, fmt.Errorf("lobbies.Create: %w", err)
	}
	s.log.Info("lobby created", "lobby_id", l.ID, "owner_id", ownerID)
	return *l, nil
}

func (s *LobbyService) Get(ctx context.Context, id int64) (domain.Lobby, error) {
	if id <= 0 {
		return domain.Lobby{}, domain.ErrLobbyNotFound
	}
	l, err := s.lobbies.Get(ctx, id)
	if err != nil {
		return domain.Lobby{}, fmt.Errorf("lobbies.Get: %w", err)
	}
	return *l, nil
}

// List возвращает список лобби с курсорной пагинацией.
func (s *LobbyService) List(ctx context.Context, limit int, cursor string) ([]domain.Lobby, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	lobbies, next, err := s.lobbies.List(ctx, limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("lobbies.List: %w", err)
	}
	return lobbies, next, nil
}

// Participants is the live roster of an existing lobby.
func (s *LobbyService) Participants(ctx context.Context, id int64) ([]domain.Participant, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.roster == nil {
		return nil, nil
	}
	return s.roster.Participants(id), nil
}
