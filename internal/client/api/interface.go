package api

import (
	"context"

	"github.com/iudanet/drawsync/pkg/api"
)

// ClientAPI HTTP API сервера доски
type ClientAPI interface {
	Join(ctx context.Context, clientID string) (*api.JoinResponse, error)
	Heartbeat(ctx context.Context, clientID string) error
	Leave(ctx context.Context, clientID string) error
	SubmitStroke(ctx context.Context, clientID string, seg api.StrokeSegment) (*api.StrokeResponse, error)
	Poll(ctx context.Context, clientID string, since int64) (*api.PollResponse, error)
	Health(ctx context.Context) (*api.HealthResponse, error)

	ModeratorLogin(ctx context.Context, req api.ModeratorLoginRequest) (*api.TokenResponse, error)
	Clear(ctx context.Context, accessToken string) (*api.EventResponse, error)
	SetControl(ctx context.Context, accessToken string, enabled bool) (*api.EventResponse, error)
	Presence(ctx context.Context, accessToken string) (*api.PresenceResponse, error)

	DialStream(ctx context.Context, clientID string, since int64) (*Stream, error)
}

var _ ClientAPI = (*Client)(nil)
