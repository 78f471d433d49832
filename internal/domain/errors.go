package domain

import "errors"

var (
	ErrLobbyNotFound      = errors.New("lobby not found")
	ErrLobbyNameTaken     = errors.New("lobby name already taken")
	ErrInvalidLobbyName   = errors.New("invalid lobby name")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCursor      = errors.New("invalid cursor")

	ErrNotInRoom          = errors.New("user not in the room")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrEmptyMessage       = errors.New("message content is empty")
	ErrMessageTooLong     = errors.New("message content is too long")
)
