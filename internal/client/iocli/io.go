// Package iocli ввод и вывод интерактивного клиента
package iocli

// IO терминал пользователя
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}
