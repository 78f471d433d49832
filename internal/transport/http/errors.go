package http

import (
	"errors"
	"net/http"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
)

// toHTTP maps a service error to a status and a message safe to show.
func toHTTP(err error) (int, string) {
	for _, m := range []struct {
		err    error
		status int
	}{
		{domain.ErrLobbyNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrLobbyNameTaken, http.StatusConflict},
		{domain.ErrUsernameTaken, http.StatusConflict},
		{domain.ErrInvalidLobbyName, http.StatusBadRequest},
		{domain.ErrInvalidUsername, http.StatusBadRequest},
		{domain.ErrPasswordTooShort, http.StatusBadRequest},
		{domain.ErrInvalidCursor, http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
	} {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}
