package httputil_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwrk-planet/lobby-chat/pkg/httputil"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := httputil.MiddlewareRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httputil.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(httputil.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httputil.HeaderRequestID, "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "fixed-id", seen)
}

func TestError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, http.StatusNotFound, "lobby not found")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "lobby not found", body.Error.Message)
}

func TestMiddlewareLogging_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := httputil.MiddlewareLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"secret"}`)))

	out := buf.String()
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "status=418")
	require.Contains(t, out, "path=/api/login")
	require.NotContains(t, out, "secret")
}
