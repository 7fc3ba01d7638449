// Package gesture classifies a tracked hand as open or closed.
package gesture

import (
	"github.com/ayusman/akshara/internal/detector"
)

// Pose is the discrete gesture derived from one landmark frame.
type Pose string

const (
	// PoseOpen is an open hand (fingers extended).
	PoseOpen Pose = "open"
	// PoseFist is a closed hand (fingertips curled toward the wrist).
	PoseFist Pose = "fist"
)

// DefaultFistRatio is the tip/palm ratio below which a hand counts as a fist.
// Values in the 1.25-1.5 range behave well; looser values trigger more easily.
const DefaultFistRatio = 1.4

// minPalmScale guards against degenerate detections where wrist and middle
// MCP collapse onto one point.
const minPalmScale = 1e-6

// PalmScale returns the image-plane distance from the wrist to the middle
// finger MCP, used as the hand-size reference.
func PalmScale(h *detector.HandLandmarks) float64 {
	return detector.Distance2D(h.Points[detector.Wrist], h.Points[detector.MiddleMCP])
}

// MeanTipDistance returns the mean image-plane distance from the wrist to the
// index, middle, ring and pinky fingertips.
func MeanTipDistance(h *detector.HandLandmarks) float64 {
	wrist := h.Points[detector.Wrist]
	var sum float64
	for _, tip := range detector.FingerTips {
		sum += detector.Distance2D(wrist, h.Points[tip])
	}
	return sum / float64(len(detector.FingerTips))
}

// Ratio returns MeanTipDistance / PalmScale. The result does not depend on
// how far the hand is from the camera. A degenerate hand returns ok=false.
func Ratio(h *detector.HandLandmarks) (ratio float64, ok bool) {
	if h == nil {
		return 0, false
	}
	if PalmScale(h) < minPalmScale {
		return 0, false
	}
	// Normalizing the flattened hand makes the palm scale exactly 1.
	flat := h.Flatten()
	return MeanTipDistance(flat.Normalize()), true
}

// Classify returns PoseFist when the mean fingertip distance is below
// palmScale * ratio, PoseOpen otherwise. Nil and degenerate hands are open.
func Classify(h *detector.HandLandmarks, ratio float64) Pose {
	r, ok := Ratio(h)
	if !ok {
		return PoseOpen
	}
	if r < ratio {
		return PoseFist
	}
	return PoseOpen
}

// IsFist is shorthand for Classify(h, ratio) == PoseFist.
func IsFist(h *detector.HandLandmarks, ratio float64) bool {
	return Classify(h, ratio) == PoseFist
}
