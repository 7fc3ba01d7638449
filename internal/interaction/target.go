// Package interaction hit-tests the cursor against on-screen targets and
// turns the fist signal into discrete selections.
package interaction

import (
	"math"

	"github.com/ayusman/akshara/internal/cursor"
)

// DefaultHitRadius is the hit radius in percent of the viewport.
const DefaultHitRadius = 12.0

// Target is one selectable option on screen.
type Target struct {
	ID        string       `json:"id"`
	Position  cursor.Point `json:"position"`
	HitRadius float64      `json:"hitRadius"`
}

// Distance returns the Euclidean distance between two points in
// percentage space.
func Distance(a, b cursor.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// HitTest returns the nearest target whose distance from p is strictly less
// than its hit radius. Equal distances resolve to the earlier target.
func HitTest(p cursor.Point, targets []Target) (Target, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, t := range targets {
		d := Distance(p, t.Position)
		if d < t.HitRadius && d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return Target{}, false
	}
	return targets[best], true
}
