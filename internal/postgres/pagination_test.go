package postgres_test

import (
	"testing"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/postgres"

	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := postgres.Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), ID: 17}

	s, err := postgres.EncodeCursor(c)
	require.NoError(t, err)

	got, err := postgres.DecodeCursor(s)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.True(t, c.CreatedAt.Equal(got.CreatedAt))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	got, err := postgres.DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, got)

	for _, s := range []string{"%%%", "bm90LWpzb24", "e30"} {
		_, err := postgres.DecodeCursor(s)
		require.ErrorIs(t, err, postgres.ErrInvalidCursor, s)
	}
}
