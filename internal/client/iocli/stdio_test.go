package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdio(t *testing.T) {
	var stdio IO = NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStreams(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")

	assert.Equal(t, "hello world\ntest 1 abc", out.String())
}

func TestReadInput(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		input   string
		want    string
	}{
		{name: "line", input: "user input\n", want: "user input"},
		{name: "trims spaces", input: "  #ff0000  \n", want: "#ff0000"},
		{name: "no trailing newline", input: "last", want: "last"},
		{name: "empty stream", input: "", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			stdio := NewStreams(strings.NewReader(tt.input), &out)

			got, err := stdio.ReadInput("Prompt: ")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Prompt: ", out.String())
		})
	}
}

// Вне терминала пароль читается обычной строкой
func TestReadPassword_NotTerminal(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStreams(strings.NewReader("secret\nnext\n"), &out)

	pw, err := stdio.ReadPassword("Secret: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	next, err := stdio.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "next", next)
}
