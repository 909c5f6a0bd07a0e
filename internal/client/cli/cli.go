// Package cli команды клиента доски
package cli

import (
	"context"
	"errors"
	"fmt"

	httpClient "github.com/iudanet/drawsync/internal/client/api"
	"github.com/iudanet/drawsync/internal/client/iocli"
	"github.com/iudanet/drawsync/internal/client/storage"
	"github.com/iudanet/drawsync/internal/client/sync"
)

// ErrUnknownCommand команда не распознана
var ErrUnknownCommand = errors.New("unknown command")

// SecretEnv переменная окружения с секретом модератора
const SecretEnv = "MODERATOR_PASSWORD"

type Cli struct {
	io          iocli.IO
	apiClient   httpClient.ClientAPI
	store       storage.Storage
	syncService *sync.Service
	getenv      func(string) string
}

func New(io iocli.IO, apiClient httpClient.ClientAPI, store storage.Storage, syncService *sync.Service, getenv func(string) string) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		store:       store,
		syncService: syncService,
		getenv:      getenv,
	}
}

// Run выполняет команду; args без имени команды
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "join":
		return c.runJoin(ctx, args)
	case "leave":
		return c.runLeave(ctx)
	case "draw":
		return c.runDraw(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "watch":
		return c.runWatch(ctx, args)
	case "status":
		return c.runStatus(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "clear":
		return c.runClear(ctx)
	case "pause":
		return c.runControl(ctx, false)
	case "resume":
		return c.runControl(ctx, true)
	case "who":
		return c.runWho(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func PrintUsage(out iocli.IO) {
	out.Println("Drawsync Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  drawsync [OPTIONS] COMMAND [ARGS]")
	out.Println()
	out.Println("Options:")
	out.Println("  -version                     Show version information")
	out.Println("  -server URL                  Server URL (default: http://localhost:8080)")
	out.Println("  -db PATH                     Path to local database (default: drawsync-client.db)")
	out.Println()
	out.Println("Commands:")
	out.Println("  join [-id ID]                Join the board (server assigns an id if none is stored)")
	out.Println("  leave                        Leave the board")
	out.Println("  draw [-color C] [-width W] X1 Y1 X2 Y2")
	out.Println("                               Draw one segment")
	out.Println("  sync                         Fetch new events once")
	out.Println("  watch [-mode poll|ws] [-interval D] [-draw [-color C] [-width W]]")
	out.Println("                               Follow the board until interrupted;")
	out.Println("                               with -draw, X1 Y1 X2 Y2 lines on stdin are drawn over the socket")
	out.Println("  status                       Show local projection and server status")
	out.Println()
	out.Println("Moderator commands:")
	out.Printf("  login                        Exchange the shared secret for a token (%s or prompt)\n", SecretEnv)
	out.Println("  logout                       Forget the moderator token")
	out.Println("  clear                        Clear the board for everyone")
	out.Println("  pause                        Disable drawing for everyone")
	out.Println("  resume                       Enable drawing again")
	out.Println("  who                          List active clients")
	out.Println()
	out.Println("Examples:")
	out.Println("  drawsync join")
	out.Println("  drawsync draw -color '#ff0000' -width 4 10 10 120 80")
	out.Println("  drawsync watch -mode ws")
	out.Printf("  %s='secret' drawsync login\n", SecretEnv)
}
