package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/drawsync/pkg/api"
)

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	status  StatusService
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, status StatusService, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		status:  status,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
// Возвращает 503, если хранилище событий недоступно
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	st, err := h.status.Status(r.Context())
	if err != nil {
		h.logger.Error("health check failed", slog.Any("error", err))
		sendJSON(w, h.logger, api.HealthResponse{Status: "unavailable", Version: h.version}, http.StatusServiceUnavailable)
		return
	}

	sendJSON(w, h.logger, api.HealthResponse{
		Status:         "ok",
		Version:        h.version,
		LastSeq:        st.LastSeq,
		Retained:       st.Retained,
		ActiveUsers:    st.ActiveUsers,
		Subscribers:    st.Subscribers,
		DrawingEnabled: st.DrawingEnabled,
	}, http.StatusOK)
}
