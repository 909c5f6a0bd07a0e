package validation

import (
	"fmt"
	"math"
	"regexp"

	"github.com/iudanet/drawsync/internal/models"
)

// ColorPattern hex цвет: #rgb, #rrggbb или #rrggbbaa
var ColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

const (
	// MinStrokeWidth минимальная толщина линии
	MinStrokeWidth = 1
	// MaxStrokeWidth максимальная толщина линии
	MaxStrokeWidth = 64
)

// ValidateSegment проверяет отрезок перед добавлением в журнал.
// Координаты должны быть конечными числами, толщина в диапазоне
// [MinStrokeWidth, MaxStrokeWidth], цвет в hex формате.
func ValidateSegment(seg models.StrokeSegment) error {
	coords := []struct {
		name  string
		value float64
	}{
		{"prev_x", seg.PrevX},
		{"prev_y", seg.PrevY},
		{"x", seg.X},
		{"y", seg.Y},
	}
	for _, c := range coords {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("coordinate %s must be a finite number", c.name)
		}
	}

	if seg.StrokeWidth < MinStrokeWidth {
		return fmt.Errorf("stroke width must be positive, got %d", seg.StrokeWidth)
	}

	if seg.StrokeWidth > MaxStrokeWidth {
		return fmt.Errorf("stroke width must not exceed %d, got %d", MaxStrokeWidth, seg.StrokeWidth)
	}

	if !ColorPattern.MatchString(seg.Color) {
		return fmt.Errorf("color must be a hex value like #000000, got %q", seg.Color)
	}

	return nil
}
