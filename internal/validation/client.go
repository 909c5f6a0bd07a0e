package validation

import (
	"fmt"
	"regexp"
)

// ClientIDPattern определяет допустимый формат идентификатора клиента.
// Латинские буквы, цифры и символы _ . : -, длина 1-64.
// UUID, которые выдает сервер, проходят проверку.
var ClientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,64}$`)

// MaxClientIDLen максимальная длина идентификатора клиента
const MaxClientIDLen = 64

// ValidateClientID проверяет идентификатор клиента
func ValidateClientID(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client id cannot be empty")
	}

	if len(clientID) > MaxClientIDLen {
		return fmt.Errorf("client id must not exceed %d characters", MaxClientIDLen)
	}

	if !ClientIDPattern.MatchString(clientID) {
		return fmt.Errorf("client id can only contain letters, numbers, '_', '.', ':' and '-'")
	}

	return nil
}

// ValidateSecret проверяет, что секрет модератора не пустой
func ValidateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}
	return nil
}
