package cursor

// State is what consumers read on every animation tick.
type State struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	IsFist   bool    `json:"isFist"`
	Progress float64 `json:"progress"`
}

// Default is the state before the first detection: centered, open, idle.
func Default() State {
	return State{X: Center.X, Y: Center.Y}
}

// Position returns the cursor position as a Point.
func (s State) Position() Point {
	return Point{X: s.X, Y: s.Y}
}
