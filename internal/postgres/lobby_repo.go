package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/lobby-chat/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LobbyRepository struct {
	db *pgxpool.Pool
}

func NewLobbyRepository(db *pgxpool.Pool) *LobbyRepository {
	return &LobbyRepository{db: db}
}

func (r *LobbyRepository) Create(ctx context.Context, l *domain.Lobby) error {
	query := `
		INSERT INTO lobbies (name, owner_id)
		VALUES ($1, NULLIF($2::bigint, 0))
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, l.Name, l.OwnerID).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLobbyNameTaken
		}
		return err
	}
	return nil
}

func (r *LobbyRepository) Get(ctx context.Context, id int64) (*domain.Lobby, error) {
	var l domain.Lobby
	query := `SELECT id, name, COALESCE(owner_id, 0), created_at FROM lobbies WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name, &l.OwnerID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLobbyNotFound
		}
		return nil, err
	}
	return &l, nil
}

// List returns lobbies newest first. nextCursor is empty on the last page.
func (r *LobbyRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.Lobby, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, name, COALESCE(owner_id, 0), created_at
		FROM lobbies
		WHERE ($1::timestamptz IS NULL OR created_at < $1
		       OR (created_at = $1 AND id < $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	lobbies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Lobby, error) {
		var l domain.Lobby
		err := row.Scan(&l.ID, &l.Name, &l.OwnerID, &l.CreatedAt)
		return l, err
	})
	if err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(lobbies) == limit {
		last := lobbies[len(lobbies)-1]
		nextCursor, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return lobbies, nextCursor, nil
}
