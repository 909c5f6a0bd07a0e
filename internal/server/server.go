// Package server собирает движок синхронизации, хранилище и HTTP API в один процесс
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/drawsync/internal/crypto"
	"github.com/iudanet/drawsync/internal/server/config"
	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/internal/server/handlers"
	"github.com/iudanet/drawsync/internal/server/middleware"
	"github.com/iudanet/drawsync/internal/server/storage"
	"github.com/iudanet/drawsync/internal/server/storage/memory"
	"github.com/iudanet/drawsync/internal/server/storage/sqlite"
)

// backend хранилище событий и присутствия одного драйвера
type backend interface {
	storage.EventStorage
	storage.PresenceStorage
	io.Closer
}

// Server HTTP сервер доски
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      backend
	gateway    *engine.Gateway
	limiter    *middleware.PathLimiter
	httpServer *http.Server
}

// New открывает хранилище, восстанавливает журнал и регистрирует маршруты
func New(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := engine.NewGateway(ctx, store, store, engine.Config{
		Retention:        cfg.Retention,
		SubscriberBuffer: cfg.SubscriberBuffer,
		PresenceTimeout:  cfg.PresenceTimeout,
		DrawingDisabled:  cfg.DrawingDisabled,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to start sync engine: %w", err)
	}

	verifier, err := crypto.NewSecretVerifier(cfg.ModeratorSecret)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to prepare moderator secret: %w", err)
	}

	tokenSecret := cfg.TokenSecret
	if tokenSecret == "" {
		// Токены модератора переживают только текущий процесс
		tokenSecret, err = crypto.GenerateTokenSecret()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Warn("Token secret not configured, generated ephemeral secret")
	}

	if cfg.ModeratorSecret == config.DefaultModeratorSecret {
		logger.Warn("Using default moderator secret, set MODERATOR_PASSWORD")
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		gateway: gateway,
		limiter: middleware.NewPathLimiter([]middleware.PathRateLimit{
			{Path: "/api/v1/moderator/login", Rate: cfg.LoginRateLimit, Window: time.Minute},
		}, cfg.RateLimit, cfg.RateWindow, logger),
	}

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(tokenSecret),
		AccessTokenTTL: cfg.TokenTTL,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(version, verifier, jwtConfig),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	// Shutdown не ждет hijacked WebSocket соединений; закрытие хаба завершает и их, и SSE
	s.httpServer.RegisterOnShutdown(gateway.Close)

	return s, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		store, err := sqlite.New(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return store, nil
	case config.StorageMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func (s *Server) routes(version string, secret handlers.SecretChecker, jwtConfig handlers.JWTConfig) http.Handler {
	session := handlers.NewSessionHandler(s.logger, s.gateway, s.cfg.HeartbeatInterval)
	stream := handlers.NewStreamHandler(s.logger, s.gateway, s.cfg.HeartbeatInterval, s.cfg.AllowedOrigins)
	moderator := handlers.NewModeratorHandler(s.logger, s.gateway, secret, jwtConfig)
	health := handlers.NewHealthHandler(s.logger, s.gateway, version)

	requireModerator := middleware.ModeratorAuth(s.logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", health.Health)

	mux.HandleFunc("POST /api/v1/session/join", session.Join)
	mux.HandleFunc("POST /api/v1/session/heartbeat", session.Heartbeat)
	mux.HandleFunc("POST /api/v1/session/leave", session.Leave)
	mux.HandleFunc("POST /api/v1/strokes", session.SubmitStroke)
	mux.HandleFunc("GET /api/v1/events", session.Poll)

	mux.HandleFunc("GET /api/v1/events/stream", stream.SSE)
	mux.HandleFunc("GET /api/v1/ws", stream.WebSocket)

	mux.HandleFunc("POST /api/v1/moderator/login", moderator.Login)
	mux.Handle("POST /api/v1/moderator/clear", requireModerator(http.HandlerFunc(moderator.Clear)))
	mux.Handle("POST /api/v1/moderator/control", requireModerator(http.HandlerFunc(moderator.Control)))
	mux.Handle("GET /api/v1/moderator/presence", requireModerator(http.HandlerFunc(moderator.Presence)))

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = s.cfg.AllowedOrigins

	// Порядок: recovery снаружи, чтобы перехватить панику любого слоя
	var h http.Handler = mux
	h = s.limiter.Middleware(h)
	h = middleware.CORS(cors)(h)
	h = middleware.LoggingWithSkip(s.logger, []string{"/api/v1/health"})(h)
	h = middleware.RecoveryMiddleware(s.logger)(h)

	return h
}

// Handler корневой handler со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает очистку присутствия и HTTP сервер.
// Блокируется до отмены ctx, затем останавливает сервер с таймаутом ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()

	go s.gateway.Run(sweepCtx, s.cfg.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Addr, "storage", s.cfg.StorageDriver)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.release()
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", "timeout", s.cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.release()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Close освобождает ресурсы сервера, который не запускался через Run
func (s *Server) Close() error {
	return s.release()
}

func (s *Server) release() error {
	s.gateway.Close()
	s.limiter.Stop()
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close storage", "error", err)
		return err
	}
	return nil
}
