package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/drawsync/pkg/api"
)

// ErrUnauthorized сервер отклонил токен модератора или секрет
var ErrUnauthorized = errors.New("unauthorized")

// StatusError ответ сервера с кодом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap позволяет проверять 401 через errors.Is(err, ErrUnauthorized)
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Join регистрирует клиента; пустой clientID получает id от сервера
func (c *Client) Join(ctx context.Context, clientID string) (*api.JoinResponse, error) {
	var resp api.JoinResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/session/join", "", api.JoinRequest{ClientID: clientID}, &resp); err != nil {
		return nil, fmt.Errorf("join request failed: %w", err)
	}
	return &resp, nil
}

// Heartbeat продлевает присутствие
func (c *Client) Heartbeat(ctx context.Context, clientID string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/session/heartbeat", "", api.ClientRequest{ClientID: clientID}, nil); err != nil {
		return fmt.Errorf("heartbeat request failed: %w", err)
	}
	return nil
}

// Leave сообщает об уходе
func (c *Client) Leave(ctx context.Context, clientID string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/session/leave", "", api.ClientRequest{ClientID: clientID}, nil); err != nil {
		return fmt.Errorf("leave request failed: %w", err)
	}
	return nil
}

// SubmitStroke отправляет отрезок. Accepted=false без ошибки означает,
// что рисование сейчас запрещено.
func (c *Client) SubmitStroke(ctx context.Context, clientID string, seg api.StrokeSegment) (*api.StrokeResponse, error) {
	var resp api.StrokeResponse
	req := api.StrokeRequest{ClientID: clientID, Segment: seg}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/strokes", "", req, &resp); err != nil {
		return nil, fmt.Errorf("stroke request failed: %w", err)
	}
	return &resp, nil
}

// Poll получает события после since
func (c *Client) Poll(ctx context.Context, clientID string, since int64) (*api.PollResponse, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	if clientID != "" {
		q.Set("client_id", clientID)
	}

	var resp api.PollResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/events?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	return &resp, nil
}

// Health состояние сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// ModeratorLogin обменивает общий секрет на токен
func (c *Client) ModeratorLogin(ctx context.Context, req api.ModeratorLoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/moderator/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Clear очищает доску
func (c *Client) Clear(ctx context.Context, accessToken string) (*api.EventResponse, error) {
	var resp api.EventResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/moderator/clear", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("clear request failed: %w", err)
	}
	return &resp, nil
}

// SetControl разрешает или запрещает рисование
func (c *Client) SetControl(ctx context.Context, accessToken string, enabled bool) (*api.EventResponse, error) {
	var resp api.EventResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/moderator/control", accessToken, api.ControlRequest{Enabled: enabled}, &resp); err != nil {
		return nil, fmt.Errorf("control request failed: %w", err)
	}
	return &resp, nil
}

// Presence список активных клиентов
func (c *Client) Presence(ctx context.Context, accessToken string) (*api.PresenceResponse, error) {
	var resp api.PresenceResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/moderator/presence", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("presence request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			statusErr.Message = errResp.Message
		}
		return statusErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
