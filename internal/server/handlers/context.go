package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// ModeratorKey ключ для хранения claims модератора в контексте
	ModeratorKey contextKey = "moderator"
)

// WithModerator кладет claims модератора в контекст
func WithModerator(ctx context.Context, claims *ModeratorClaims) context.Context {
	return context.WithValue(ctx, ModeratorKey, claims)
}

// GetModerator извлекает claims модератора из контекста запроса
func GetModerator(ctx context.Context) (*ModeratorClaims, bool) {
	claims, ok := ctx.Value(ModeratorKey).(*ModeratorClaims)
	return claims, ok && claims != nil
}
