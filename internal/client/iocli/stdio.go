package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio терминал поверх произвольных потоков
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // -1, если in не терминал
}

// NewStdio терминал процесса
func NewStdio() *Stdio {
	s := NewStreams(os.Stdin, os.Stdout)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		s.fd = int(os.Stdin.Fd())
	}
	return s
}

// NewStreams терминал без эха-подавления, для пайпов и тестов
func NewStreams(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out, fd: -1}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	if prompt != "" {
		s.Printf("%s", prompt)
	}
	return s.readLine()
}

// ReadPassword читает строку без эха, если ввод идет с терминала
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	s.Printf("%s", prompt)
	if s.fd < 0 {
		return s.readLine()
	}

	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) readLine() (string, error) {
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
