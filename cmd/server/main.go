package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/lobby-chat/config"
	"github.com/cwrk-planet/lobby-chat/internal/postgres"
	"github.com/cwrk-planet/lobby-chat/internal/room"
	"github.com/cwrk-planet/lobby-chat/internal/security"
	"github.com/cwrk-planet/lobby-chat/internal/service"
	grpcx "github.com/cwrk-planet/lobby-chat/internal/transport/grpc"
	httpx "github.com/cwrk-planet/lobby-chat/internal/transport/http"
	"github.com/cwrk-planet/lobby-chat/internal/transport/ws"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting lobby-chat",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "framing", cfg.Gateway.Format())

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, cfg.Postgres.ToPGConfig())
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	// --- repos & services ---
	lobbyRepo := postgres.NewLobbyRepository(db)
	userRepo := postgres.NewUserRepository(db)

	signer, err := security.NewJWTSigner(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.AccessTTL, cfg.Security.ClockSkew)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}

	// ids restart high enough after a restart that clients never see a
	// reused id within one dedup window
	registry := room.NewRegistry(
		room.WithFormat(cfg.Gateway.Format()),
		room.WithMaxContent(cfg.Gateway.MaxContent),
		room.WithSequenceStart(time.Now().UnixMicro()),
	)

	authSvc := service.NewAuthService(userRepo, signer, cfg.Security.Bcrypt(), nil)
	lobbySvc := service.NewLobbyService(lobbyRepo, registry)

	// --- WS gateway ---
	gateway := ws.NewServer(registry, lobbySvc, authSvc,
		cfg.Gateway.ToWSConfig(cfg.CORS.AllowedOrigins),
		ws.WithSessions(authSvc),
	)

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Auth:           authSvc,
		Lobbies:        lobbySvc,
		Realtime:       gateway,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC health ---
	grpcSrv := grpcx.NewServer(nil)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go grpcSrv.Watch(watchCtx, cfg.GRPC.HealthInterval, postgres.HealthProbe(db, cfg.Postgres.PingTimeout))

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcSrv.GRPC().Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	stopWatch()
	grpcSrv.Stop()
	// closes every websocket with 1001 so clients reconnect to the next instance
	registry.Close()
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	slog.Info("stopped")
}
