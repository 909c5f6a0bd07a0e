package crypto

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для проверки секрета модератора
const (
	// Argon2Time количество итераций
	Argon2Time = 1
	// Argon2Memory объем памяти в KB (19MB)
	Argon2Memory = 19 * 1024
	// Argon2Threads количество параллельных потоков
	Argon2Threads = 2
	// Argon2KeyLen длина хеша в байтах
	Argon2KeyLen = 32
)

// ErrSecretMismatch возвращается, если переданный секрет не совпал с эталонным
var ErrSecretMismatch = errors.New("secret mismatch")

// SecretVerifier хранит Argon2id-хеш общего секрета модератора.
// Открытый секрет в памяти не удерживается.
type SecretVerifier struct {
	salt []byte
	hash []byte
}

// NewSecretVerifier хеширует секрет со случайной солью
func NewSecretVerifier(secret string) (*SecretVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret cannot be empty")
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}

	return &SecretVerifier{
		salt: salt,
		hash: hashSecret(secret, salt),
	}, nil
}

// Verify сравнивает кандидата с эталоном за постоянное время
func (v *SecretVerifier) Verify(candidate string) error {
	if candidate == "" {
		return ErrSecretMismatch
	}

	computed := hashSecret(candidate, v.salt)
	if subtle.ConstantTimeCompare(computed, v.hash) != 1 {
		return ErrSecretMismatch
	}

	return nil
}

func hashSecret(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
}
