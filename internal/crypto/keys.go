package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// SaltSize размер соли в байтах
	SaltSize = 32
	// TokenSecretSize размер случайного секрета подписи JWT в байтах
	TokenSecretSize = 32
)

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}

// GenerateTokenSecret генерирует случайный секрет для подписи токенов модератора.
// Используется, если секрет не задан в конфигурации: токены тогда
// действительны только в пределах жизни процесса.
func GenerateTokenSecret() (string, error) {
	b, err := randomBytes(TokenSecretSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}
