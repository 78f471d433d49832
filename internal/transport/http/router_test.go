package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/internal/room"
	transport "github.com/cwrk-planet/lobby-chat/internal/transport/http"
	"github.com/cwrk-planet/lobby-chat/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAuth struct{}

func (fakeAuth) Register(_ context.Context, username, password string) (domain.Session, error) {
	if username == "taken" {
		return domain.Session{}, domain.ErrUsernameTaken
	}
	if len(password) < 6 {
		return domain.Session{}, domain.ErrPasswordTooShort
	}
	return domain.Session{UserID: 1, Username: username, Token: "tok-1", ExpiresAt: created}, nil
}

func (fakeAuth) Login(_ context.Context, username, password string) (domain.Session, error) {
	if username != "alice" || password != "secret1" {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return domain.Session{UserID: 1, Username: "alice", Token: "tok-1", ExpiresAt: created}, nil
}

func (fakeAuth) CurrentSession(_ context.Context, token string) (domain.Session, error) {
	if token != "tok-1" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	return domain.Session{UserID: 1, Username: "alice", Token: token}, nil
}

type fakeLobbies struct {
	createdBy int64
}

func (f *fakeLobbies) List(_ context.Context, limit int, cursor string) ([]domain.Lobby, string, error) {
	if cursor == "bad" {
		return nil, "", domain.ErrInvalidCursor
	}
	return []domain.Lobby{{ID: 2, Name: "random", CreatedAt: created}, {ID: 1, Name: "general", CreatedAt: created}}, "c2", nil
}

func (f *fakeLobbies) Create(_ context.Context, name string, ownerID int64) (domain.Lobby, error) {
	if name == "general" {
		return domain.Lobby{}, domain.ErrLobbyNameTaken
	}
	f.createdBy = ownerID
	return domain.Lobby{ID: 3, Name: name, OwnerID: ownerID, CreatedAt: created}, nil
}

func (f *fakeLobbies) Get(_ context.Context, id int64) (domain.Lobby, error) {
	if id == 500 {
		return domain.Lobby{}, io.ErrUnexpectedEOF
	}
	if id != 1 {
		return domain.Lobby{}, domain.ErrLobbyNotFound
	}
	return domain.Lobby{ID: 1, Name: "general", CreatedAt: created}, nil
}

func (f *fakeLobbies) Participants(ctx context.Context, id int64) ([]domain.Participant, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	return []domain.Participant{{LobbyID: 1, UserID: 5, Username: "u5", JoinedAt: created}}, nil
}

type teapotGateway struct{}

func (teapotGateway) Mount(r chi.Router) {
	r.Get(ws.Path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func newServer(t *testing.T) (*httptest.Server, *fakeLobbies) {
	t.Helper()
	lobbies := &fakeLobbies{}
	h := transport.NewRouter(transport.Deps{
		Auth:    fakeAuth{},
		Lobbies: lobbies,
		Realtime: teapotGateway{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, lobbies
}

func do(t *testing.T, srv *httptest.Server, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errMessage(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "no error envelope in %v", body)
	return e["message"].(string)
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newServer(t)
	status, body := do(t, srv, "GET", "/healthz", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestRouter_SignupLogin(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, "POST", "/api/signup", `{"username":"alice","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "tok-1", body["token"])
	require.Equal(t, float64(1), body["id"])

	status, body = do(t, srv, "POST", "/api/signup", `{"username":"taken","password":"secret1"}`, "")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, domain.ErrUsernameTaken.Error(), errMessage(t, body))

	status, _ = do(t, srv, "POST", "/api/signup", `{"username":"bob","password":"123"}`, "")
	require.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, "POST", "/api/signup", `{"username":"","password":"secret1"}`, "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, errMessage(t, body), "validation failed")

	status, _ = do(t, srv, "POST", "/api/signup", `{"username":"bob","password":"secret1","admin":true}`, "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, "POST", "/api/login", `{"username":"alice","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, "POST", "/api/login", `{"username":"alice","password":"nope!!"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_Me(t *testing.T) {
	srv, _ := newServer(t)

	status, _ := do(t, srv, "GET", "/api/me", "", "")
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = do(t, srv, "GET", "/api/me", "", "forged")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body := do(t, srv, "GET", "/api/me", "", "tok-1")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alice", body["username"])
}

func TestRouter_Lobbies(t *testing.T) {
	srv, lobbies := newServer(t)

	status, body := do(t, srv, "GET", "/api/lobbies?limit=2", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["lobbies"], 2)
	require.Equal(t, "c2", body["next_cursor"])

	status, _ = do(t, srv, "GET", "/api/lobbies?cursor=bad", "", "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, "POST", "/api/lobbies", `{"name":"chess"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = do(t, srv, "POST", "/api/lobbies", `{"name":"chess"}`, "tok-1")
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "chess", body["name"])
	require.Equal(t, int64(1), lobbies.createdBy)

	status, _ = do(t, srv, "POST", "/api/lobbies", `{"name":"general"}`, "tok-1")
	require.Equal(t, http.StatusConflict, status)

	status, body = do(t, srv, "GET", "/api/lobbies/1", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "general", body["name"])

	status, _ = do(t, srv, "GET", "/api/lobbies/9", "", "")
	require.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, srv, "GET", "/api/lobbies/x", "", "")
	require.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, "GET", "/api/lobbies/500", "", "")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "internal error", errMessage(t, body))
}

func TestRouter_Participants(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, "GET", "/api/lobbies/1/participants", "", "")
	require.Equal(t, http.StatusOK, status)
	parts := body["participants"].([]any)
	require.Len(t, parts, 1)
	require.Equal(t, "u5", parts[0].(map[string]any)["username"])

	status, _ = do(t, srv, "GET", "/api/lobbies/9/participants", "", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestRouter_RealtimeMounted(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/api/ws/7?userID=1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestRouter_MountsGatewayNextToAPI(t *testing.T) {
	gateway := ws.NewServer(room.NewRegistry(), nil, nil, ws.DefaultConfig())
	h := transport.NewRouter(transport.Deps{
		Auth:     fakeAuth{},
		Lobbies:  &fakeLobbies{},
		Realtime: gateway,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	status, body := do(t, srv, "GET", "/api/ws/abc?userID=1", "", "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid lobby id", errMessage(t, body))

	status, _ = do(t, srv, "GET", "/api/lobbies", "", "")
	require.Equal(t, http.StatusOK, status)
}
