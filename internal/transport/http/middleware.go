package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/lobby-chat/internal/domain"
	"github.com/cwrk-planet/lobby-chat/pkg/httputil"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

// requireSession accepts only requests with a valid Bearer token.
func requireSession(auth Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			sess, err := auth.CurrentSession(r.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				status, msg := toHTTP(err)
				httputil.Error(w, status, msg)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromCtx(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(domain.Session)
	return s, ok
}
