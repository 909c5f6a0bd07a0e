package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iudanet/drawsync/internal/client/sync"
	"github.com/iudanet/drawsync/pkg/api"
)

// Режимы watch
const (
	modePoll = "poll"
	modeWS   = "ws"
)

func (c *Cli) runSync(ctx context.Context) error {
	res, err := c.syncService.Sync(ctx)
	if err != nil {
		return err
	}

	if res.Reset {
		c.io.Println("Local board was rebuilt from the server log")
	}
	c.io.Printf("✓ Synced: %d new event(s)\n", res.Applied)
	c.printResult(*res)
	return nil
}

func (c *Cli) runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	mode := fs.String("mode", modeWS, "poll or ws")
	interval := fs.Duration("interval", sync.DefaultPollInterval, "poll interval")
	draw := fs.Bool("draw", false, "read X1 Y1 X2 Y2 lines from stdin and send them over the socket")
	color := fs.String("color", "#000000", "stroke color for -draw")
	width := fs.Int("width", 2, "stroke width for -draw")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if *draw && *mode != modeWS {
		return fmt.Errorf("watch: -draw requires -mode %s", modeWS)
	}

	onUpdate := func(res sync.Result) {
		c.io.Printf("[%s] seq=%d strokes=%d users=%d drawing=%t\n",
			time.Now().Format(time.TimeOnly), res.LastSeq, res.Strokes, res.ActiveUsers, res.DrawingEnabled)
	}

	c.io.Printf("Watching board (%s), press Ctrl+C to stop\n", *mode)

	switch *mode {
	case modePoll:
		return c.syncService.Watch(ctx, *interval, onUpdate)
	case modeWS:
		var strokes <-chan api.StrokeSegment
		if *draw {
			strokes = c.readStrokes(ctx, *color, *width)
		}
		return c.syncService.Stream(ctx, onUpdate, strokes)
	default:
		return fmt.Errorf("watch: unknown mode %q", *mode)
	}
}

// readStrokes читает строки с координатами до конца ввода.
// Чтение stdin не прерывается ctx, горутина завершится с процессом.
func (c *Cli) readStrokes(ctx context.Context, color string, width int) <-chan api.StrokeSegment {
	out := make(chan api.StrokeSegment)

	go func() {
		defer close(out)
		for {
			line, err := c.io.ReadInput("")
			if err != nil {
				return
			}
			if line == "" {
				continue
			}

			seg, err := parseSegment(strings.Fields(line), color, width)
			if err != nil {
				c.io.Printf("Skipped: %v\n", err)
				continue
			}

			select {
			case out <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (c *Cli) printResult(res sync.Result) {
	c.io.Printf("Last seq: %d\n", res.LastSeq)
	c.io.Printf("Strokes on board: %d\n", res.Strokes)
	c.io.Printf("Active users: %d\n", res.ActiveUsers)
	c.io.Printf("Drawing enabled: %t\n", res.DrawingEnabled)
}
