package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/lobby-chat/pkg/httputil"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Realtime registers its own routes on the root router, outside the
// request timeout.
type Realtime interface {
	Mount(r chi.Router)
}

type Deps struct {
	Auth     Auth
	Lobbies  Lobbies
	Realtime Realtime // optional

	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.For("http")
	}
	h := NewHandler(d.Auth, d.Lobbies, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Realtime != nil {
		d.Realtime.Mount(r)
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			pub.Use(middleware.Timeout(30 * time.Second))
			pub.Post("/signup", h.Signup)
			pub.Post("/login", h.Login)
			pub.Get("/lobbies", h.ListLobbies)
			pub.Get("/lobbies/{id}", h.GetLobby)
			pub.Get("/lobbies/{id}/participants", h.Participants)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(middleware.Timeout(30 * time.Second))
			pr.Use(requireSession(d.Auth))
			pr.Get("/me", h.Me)
			pr.Post("/lobbies", h.CreateLobby)
		})
	})

	return r
}
