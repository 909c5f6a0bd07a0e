package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/iudanet/drawsync/pkg/api"
)

func (c *Cli) runJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	clientID := fs.String("id", "", "client id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	resp, err := c.syncService.Join(ctx, *clientID)
	if err != nil {
		return err
	}

	c.io.Println("✓ Joined")
	c.io.Printf("Client ID: %s\n", resp.ClientID)
	c.io.Printf("Active users: %d\n", resp.ActiveUsers)
	c.io.Printf("Drawing enabled: %t\n", resp.DrawingEnabled)
	c.io.Printf("Board last seq: %d\n", resp.LastSeq)
	return nil
}

func (c *Cli) runLeave(ctx context.Context) error {
	if err := c.syncService.Leave(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Left the board")
	return nil
}

func (c *Cli) runDraw(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("draw", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	color := fs.String("color", "#000000", "stroke color")
	width := fs.Int("width", 2, "stroke width")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	seg, err := parseSegment(fs.Args(), *color, *width)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	resp, err := c.syncService.Draw(ctx, seg)
	if err != nil {
		return err
	}

	if !resp.Accepted {
		c.io.Println("⚠️  Drawing is disabled by the moderator, segment dropped")
		return nil
	}
	c.io.Printf("✓ Segment accepted (seq %d)\n", resp.Seq)
	return nil
}

// parseSegment разбирает координаты X1 Y1 X2 Y2
func parseSegment(args []string, color string, width int) (api.StrokeSegment, error) {
	if len(args) != 4 {
		return api.StrokeSegment{}, fmt.Errorf("expected X1 Y1 X2 Y2, got %d arguments", len(args))
	}

	var coords [4]float64
	for i, raw := range args {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return api.StrokeSegment{}, fmt.Errorf("invalid coordinate %q", raw)
		}
		coords[i] = v
	}

	return api.StrokeSegment{
		PrevX:       coords[0],
		PrevY:       coords[1],
		X:           coords[2],
		Y:           coords[3],
		Color:       color,
		StrokeWidth: width,
	}, nil
}
