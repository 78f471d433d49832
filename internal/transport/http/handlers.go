package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBody = 1 << 16

type Auth interface {
	Register(ctx context.Context, username, password string) (domain.Session, error)
	Login(ctx context.Context, username, password string) (domain.Session, error)
	CurrentSession(ctx context.Context, token string) (domain.Session, error)
}

type Lobbies interface {
	List(ctx context.Context, limit int, cursor string) ([]domain.Lobby, string, error)
	Create(ctx context.Context, name string, ownerID int64) (domain.Lobby, error)
	Get(ctx context.Context, id int64) (domain.Lobby, error)
	Participants(ctx context.Context, id int64) ([]domain.Participant, error)
}

type Handler struct {
	auth     Auth
	lobbies  Lobbies
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(auth Auth, lobbies Lobbies, log *slog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		lobbies:  lobbies,
		validate: validator.New(),
		log:      log,
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if !h.decode(w, r, &in) {
		return
	}
	sess, err := h.auth.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, toSession(sess))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if !h.decode(w, r, &in) {
		return
	}
	sess, err := h.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toSession(sess))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromCtx(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	httputil.JSON(w, http.StatusOK, meResponse{ID: sess.UserID, Username: sess.Username})
}

// ListLobbies: GET /api/lobbies?limit=20&cursor=...
func (h *Handler) ListLobbies(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")

	lobbies, next, err := h.lobbies.List(r.Context(), limit, cursor)
	if err != nil {
		h.fail(w, r, "list lobbies", err)
		return
	}
	httputil.JSON(w, http.StatusOK, lobbyListResponse{Lobbies: toLobbies(lobbies), NextCursor: next})
}

func (h *Handler) CreateLobby(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromCtx(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var in createLobbyRequest
	if !h.decode(w, r, &in) {
		return
	}
	l, err := h.lobbies.Create(r.Context(), in.Name, sess.UserID)
	if err != nil {
		h.fail(w, r, "create lobby", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, toLobby(l))
}

func (h *Handler) GetLobby(w http.ResponseWriter, r *http.Request) {
	id, ok := lobbyID(w, r)
	if !ok {
		return
	}
	l, err := h.lobbies.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get lobby", err)
		return
	}
	httputil.JSON(w, http.StatusOK, toLobby(l))
}

func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	id, ok := lobbyID(w, r)
	if !ok {
		return
	}
	ps, err := h.lobbies.Participants(r.Context(), id)
	if err != nil {
		h.fail(w, r, "participants", err)
		return
	}
	httputil.JSON(w, http.StatusOK, participantsResponse{LobbyID: id, Participants: toParticipants(ps)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(w, r, maxBody, dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := toHTTP(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), op+" failed", slog.Any("err", err))
	}
	httputil.Error(w, status, msg)
}

func lobbyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid lobby id")
		return 0, false
	}
	return id, true
}
