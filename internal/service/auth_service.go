package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/internal/security"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUsernameByID(ctx context.Context, id int64) (string, error)
}

type AuthService struct {
	users      UserStore
	jwt        *security.JWTSigner
	passPolicy security.BcryptConfig
	now        func() time.Time
	log        *slog.Logger
}

func NewAuthService(users UserStore, jwt *security.JWTSigner, passPolicy security.BcryptConfig, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		users:      users,
		jwt:        jwt,
		passPolicy: passPolicy,
		now:        now,
		log:        logger.For("auth"),
	}
}

// Register создаёт пользователя и сразу выдаёт сессию.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.Session, error) {
	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return domain.Session{}, err
	}

	hash, err := security.HashPassword(password, &s.passPolicy)
	if err != nil {
		return domain.Session{}, err
	}

	u := &domain.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrUsernameTaken) {
			s.log.Error("auth.register.create failed", slog.Any("err", err))
		}
		return domain.Session{}, fmt.Errorf("users.Create: %w", err)
	}

	s.log.Info("user registered", "user_id", u.ID)
	return s.issue(u)
}

// Login аутентифицирует по username+пароль.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Session{}, domain.ErrInvalidCredentials
		}
		s.log.Error("auth.login.getByUsername failed", slog.Any("err", err))
		return domain.Session{}, fmt.Errorf("users.GetByUsername: %w", err)
	}

	if err := security.ComparePassword(u.PasswordHash, password); err != nil {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return s.issue(u)
}

// CurrentSession validates an access token.
func (s *AuthService) CurrentSession(_ context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	sess, err := s.jwt.Session(token, s.now())
	if err != nil {
		s.log.Debug("auth.session rejected", slog.Any("err", err))
		return domain.Session{}, domain.ErrUnauthorized
	}
	return sess, nil
}

func (s *AuthService) Username(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", domain.ErrUserNotFound
	}
	name, err := s.users.GetUsernameByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("users.GetUsernameByID: %w", err)
	}
	return name, nil
}

func (s *AuthService) issue(u *domain.User) (domain.Session, error) {
	token, exp, err := s.jwt.SignAccessToken(u.ID, u.Username, s.now())
	if err != nil {
		s.log.Error("auth.issue failed", slog.Any("err", err))
		return domain.Session{}, err
	}
	return domain.Session{UserID: u.ID, Username: u.Username, Token: token, ExpiresAt: exp}, nil
}
