package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/drawsync/internal/validation"
	"github.com/iudanet/drawsync/pkg/api"
)

// ModeratorHandler обрабатывает вход модератора и привилегированные операции.
// Движок доверяет вызывающему: проверка прав выполняется здесь и в AuthMiddleware.
type ModeratorHandler struct {
	logger    *slog.Logger
	service   ModeratorService
	secret    SecretChecker
	jwtConfig JWTConfig
}

// NewModeratorHandler создает handler модератора
func NewModeratorHandler(logger *slog.Logger, service ModeratorService, secret SecretChecker, jwtConfig JWTConfig) *ModeratorHandler {
	return &ModeratorHandler{
		logger:    logger,
		service:   service,
		secret:    secret,
		jwtConfig: jwtConfig,
	}
}

// Login обрабатывает POST /api/v1/moderator/login
// Обменивает общий секрет на токен модератора
func (h *ModeratorHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ModeratorLoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateSecret(req.Secret); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if req.ClientID != "" {
		if err := validation.ValidateClientID(req.ClientID); err != nil {
			sendError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.secret.Verify(req.Secret); err != nil {
		h.logger.WarnContext(ctx, "moderator login failed", slog.String("remote_addr", r.RemoteAddr))
		sendError(w, h.logger, "invalid secret", http.StatusUnauthorized)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.ClientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate moderator token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "moderator logged in", slog.String("client_id", req.ClientID))

	sendJSON(w, h.logger, api.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}

// Clear обрабатывает POST /api/v1/moderator/clear
func (h *ModeratorHandler) Clear(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.moderatorID(w, r)
	if !ok {
		return
	}

	ev, err := h.service.SubmitClear(r.Context(), clientID)
	if err != nil {
		sendEngineError(w, r, h.logger, "clear canvas", err)
		return
	}

	sendJSON(w, h.logger, api.EventResponse{Event: toAPIEvent(ev)}, http.StatusCreated)
}

// Control обрабатывает POST /api/v1/moderator/control
func (h *ModeratorHandler) Control(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.moderatorID(w, r)
	if !ok {
		return
	}

	var req api.ControlRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := h.service.SetControl(r.Context(), clientID, req.Enabled)
	if err != nil {
		sendEngineError(w, r, h.logger, "set drawing control", err)
		return
	}

	sendJSON(w, h.logger, api.EventResponse{Event: toAPIEvent(ev)}, http.StatusCreated)
}

// Presence обрабатывает GET /api/v1/moderator/presence
func (h *ModeratorHandler) Presence(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.moderatorID(w, r); !ok {
		return
	}

	entries, err := h.service.ActiveClients(r.Context())
	if err != nil {
		sendEngineError(w, r, h.logger, "list presence", err)
		return
	}

	clients := make([]api.PresenceClient, 0, len(entries))
	for _, e := range entries {
		clients = append(clients, api.PresenceClient{ClientID: e.ClientID, LastSeenAt: e.LastSeenAt})
	}

	sendJSON(w, h.logger, api.PresenceResponse{
		Clients:     clients,
		ActiveUsers: len(clients),
	}, http.StatusOK)
}

// moderatorID достает claims, положенные AuthMiddleware
func (h *ModeratorHandler) moderatorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := GetModerator(r.Context())
	if !ok {
		h.logger.Error("Moderator claims not found in context")
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.ClientID, true
}
