package cursor

import "fmt"

// DefaultAlpha is the per-tick smoothing factor.
const DefaultAlpha = 0.15

// Smoother applies exponential smoothing toward the latest target once per
// rendered tick, independent of how often detections arrive.
type Smoother struct {
	Alpha float64

	pos       Point
	target    Point
	hasTarget bool
}

// NewSmoother returns a smoother resting at start.
func NewSmoother(alpha float64, start Point) *Smoother {
	return &Smoother{Alpha: alpha, pos: start}
}

// ValidateAlpha checks that alpha is a usable smoothing factor.
func ValidateAlpha(alpha float64) error {
	if alpha <= 0 || alpha > 1 {
		return fmt.Errorf("smoothing alpha must be in (0, 1], got %v", alpha)
	}
	return nil
}

// SetTarget records the latest raw cursor position.
func (s *Smoother) SetTarget(p Point) {
	s.target = p
	s.hasTarget = true
}

// Step advances one tick and returns the new position. With no target it
// holds the current position.
func (s *Smoother) Step() Point {
	if s.hasTarget {
		s.pos = lerp(s.pos, s.target, s.Alpha)
	}
	return s.pos
}

// Position returns the current smoothed position.
func (s *Smoother) Position() Point {
	return s.pos
}

// Reset moves the position to p and forgets the target.
func (s *Smoother) Reset(p Point) {
	s.pos = p
	s.target = Point{}
	s.hasTarget = false
}

func lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}
