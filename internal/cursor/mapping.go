// Package cursor turns normalized hand landmarks into a smoothed on-screen
// cursor expressed in percent of the viewport.
package cursor

import (
	"fmt"

	"github.com/ayusman/akshara/internal/detector"
)

// Point is a position in percentage space, 0-100 on both axes.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is the middle of the viewport.
var Center = Point{X: 50, Y: 50}

// Mapper converts normalized source-frame coordinates to percentage space.
type Mapper struct {
	// Mirror flips the horizontal axis for a front-facing camera.
	Mirror bool
	// Margin is the fraction trimmed from each frame edge before stretching
	// the remainder to the full range. Zero disables the remap.
	Margin float64
}

// DefaultMapper mirrors and expands the central 60% of the frame.
func DefaultMapper() Mapper {
	return Mapper{Mirror: true, Margin: 0.2}
}

// Validate rejects margins that leave no usable region.
func (m Mapper) Validate() error {
	if m.Margin < 0 || m.Margin >= 0.5 {
		return fmt.Errorf("margin must be in [0, 0.5), got %v", m.Margin)
	}
	return nil
}

// Map converts a normalized (x, y) pair.
func (m Mapper) Map(x, y float64) Point {
	if m.Mirror {
		x = 1 - x
	}
	return Point{X: m.remap(x) * 100, Y: m.remap(y) * 100}
}

// MapHand maps the index fingertip of h, the point the cursor follows.
func (m Mapper) MapHand(h *detector.HandLandmarks) Point {
	tip := h.Points[detector.IndexTip]
	return m.Map(tip.X, tip.Y)
}

func (m Mapper) remap(v float64) float64 {
	if m.Margin > 0 {
		v = (v - m.Margin) / (1 - 2*m.Margin)
	}
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
