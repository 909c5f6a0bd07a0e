package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/pkg/api"
)

// maxBodyBytes ограничение тела запроса: отрезок или секрет много места не занимают
const maxBodyBytes = 64 << 10

// sendJSON отправляет JSON ответ
func sendJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(w, logger, resp, statusCode)
}

// sendEngineError переводит ошибку движка в HTTP статус
func sendEngineError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	if errors.Is(err, engine.ErrInvalidInput) {
		logger.WarnContext(r.Context(), "rejected "+op, slog.Any("error", err))
		sendError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}

	logger.ErrorContext(r.Context(), "failed to "+op, slog.Any("error", err))
	sendError(w, logger, "internal server error", http.StatusInternalServerError)
}

// decodeJSON читает тело запроса в dst. Пустое тело допустимо, если allowEmpty.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseSince разбирает ?since=; отсутствие параметра означает 0
func parseSince(r *http.Request) (int64, error) {
	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		// Переподключение EventSource передает последний id в заголовке
		sinceStr = r.Header.Get("Last-Event-ID")
	}
	if sinceStr == "" {
		return 0, nil
	}

	since, err := strconv.ParseInt(sinceStr, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("invalid since parameter %q", sinceStr)
	}

	return since, nil
}
