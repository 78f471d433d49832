// Package ws is the websocket gateway: it validates join requests,
// attaches connections to lobby rooms and relays chat frames.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/internal/room"
	"github.com/cwrk-planet/lobby-chat/internal/wire"
	"github.com/cwrk-planet/lobby-chat/pkg/httputil"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Path is the route the gateway is mounted on.
const Path = "/api/ws/{lobbyID}"

type Rooms interface {
	Join(lobbyID, userID int64, username string, conn domain.ConnectionHandle) (*domain.Participant, error)
	Detach(p *domain.Participant) bool
	Broadcast(lobbyID int64, sender *domain.Participant, content string) (domain.ChatMessage, error)
}

type LobbyDirectory interface {
	Get(ctx context.Context, id int64) (domain.Lobby, error)
}

type UserDirectory interface {
	Username(ctx context.Context, userID int64) (string, error)
}

type SessionVerifier interface {
	CurrentSession(ctx context.Context, token string) (domain.Session, error)
}

type Server struct {
	rooms    Rooms
	lobbies  LobbyDirectory
	users    UserDirectory
	sessions SessionVerifier

	cfg      Config
	upgrader websocket.Upgrader
	log      *slog.Logger
}

type Option func(*Server)

func WithSessions(v SessionVerifier) Option {
	return func(s *Server) { s.sessions = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func NewServer(rooms Rooms, lobbies LobbyDirectory, users UserDirectory, cfg Config, opts ...Option) *Server {
	cfg.normalize()
	s := &Server{
		rooms:   rooms,
		lobbies: lobbies,
		users:   users,
		cfg:     cfg,
		log:     logger.For("gateway"),
	}
	for _, opt := range opts {
		opt(s)
	}

	origins := newOriginPolicy(cfg.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.check(r) {
				return true
			}
			s.log.Warn("ws origin rejected", "origin", r.Header.Get("Origin"))
			return false
		},
	}
	return s
}

func (s *Server) Mount(r chi.Router) {
	r.Get(Path, s.HandleWS)
}

// HandleWS serves GET /api/ws/{lobbyID}?userID=...&access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := parseID(chi.URLParam(r, "lobbyID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid lobby id")
		return
	}
	userID, err := parseID(r.URL.Query().Get("userID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid userID")
		return
	}

	if s.cfg.RequireToken {
		if err := s.verify(r, userID); err != nil {
			s.log.Info("ws session rejected", "lobby_id", lobbyID, "user_id", userID, "err", err)
			httputil.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	if _, err := s.lobbies.Get(r.Context(), lobbyID); err != nil {
		s.refuse(w, err, lobbyID, userID)
		return
	}
	username, err := s.users.Username(r.Context(), userID)
	if err != nil {
		s.refuse(w, err, lobbyID, userID)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		s.log.Warn("ws upgrade failed", "lobby_id", lobbyID, "user_id", userID, "err", err)
		return
	}

	log := s.log.With("lobby_id", lobbyID, "user_id", userID)
	c := newConn(ws, s.cfg, log)
	go c.writePump()

	p, err := s.rooms.Join(lobbyID, userID, username, c)
	if err != nil {
		log.Warn("ws join failed", "err", err)
		if errors.Is(err, room.ErrClosed) {
			_ = c.Close(wire.CloseGoingAway, "server shutting down")
		} else {
			_ = c.Close(wire.ClosePolicy, "join refused")
		}
		<-c.pumpDone
		return
	}
	log.Info("ws joined", "username", username)

	s.readLoop(c, p, log)

	s.rooms.Detach(p)
	_ = c.Close(wire.CloseNormal, "")
	<-c.pumpDone
	log.Info("ws left")
}

func (s *Server) readLoop(c *conn, p *domain.Participant, log *slog.Logger) {
	c.ws.SetReadLimit(s.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(deadline(s.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(deadline(s.cfg.PongWait))
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if s.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)
	}

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug("ws read failed", "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			s.reject(c, wire.CodeRateLimited, "too many messages")
			continue
		}

		req, err := wire.DecodeRequest(data)
		if err != nil {
			log.Debug("ws malformed request", "err", err)
			s.reject(c, wire.CodeMalformed, "malformed request")
			continue
		}

		if _, err := s.rooms.Broadcast(p.LobbyID, p, req.Content); err != nil {
			switch {
			case errors.Is(err, domain.ErrEmptyMessage):
				s.reject(c, wire.CodeEmptyMessage, err.Error())
			case errors.Is(err, domain.ErrMessageTooLong):
				s.reject(c, wire.CodeMessageTooLong, err.Error())
			case errors.Is(err, domain.ErrNotInRoom):
				s.reject(c, wire.CodeNotInRoom, err.Error())
			default:
				log.Error("ws broadcast failed", "err", err)
				s.reject(c, wire.CodeInternal, "internal error")
			}
		}
	}
}

// reject tells the sender why its frame was dropped. Legacy framing has no
// error frame, so there it is only logged.
func (s *Server) reject(c *conn, code, msg string) {
	data, err := wire.Encode(s.cfg.Framing, wire.ErrorFrame(code, msg))
	if err != nil {
		c.log.Debug("ws frame rejected", "code", code)
		return
	}
	_ = c.Deliver(data)
}

func (s *Server) verify(r *http.Request, userID int64) error {
	if s.sessions == nil {
		return errors.New("no session verifier configured")
	}
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	if token == "" {
		return domain.ErrUnauthorized
	}
	sess, err := s.sessions.CurrentSession(r.Context(), token)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *Server) refuse(w http.ResponseWriter, err error, lobbyID, userID int64) {
	switch {
	case errors.Is(err, domain.ErrLobbyNotFound):
		httputil.Error(w, http.StatusNotFound, "lobby not found")
	case errors.Is(err, domain.ErrUserNotFound):
		httputil.Error(w, http.StatusNotFound, "user not found")
	default:
		s.log.Error("ws lookup failed", "lobby_id", lobbyID, "user_id", userID, "err", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
