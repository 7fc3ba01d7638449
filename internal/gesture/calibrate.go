package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/akshara/internal/detector"
)

// ErrOverlap is returned when open and fist samples cannot be separated by a
// single ratio threshold.
var ErrOverlap = errors.New("open and fist samples overlap")

// Calibration summarizes recorded samples and the threshold derived from them.
type Calibration struct {
	Ratio       float64 `json:"ratio"`
	MaxFist     float64 `json:"max_fist"`
	MinOpen     float64 `json:"min_open"`
	FistSamples int     `json:"fist_samples"`
	OpenSamples int     `json:"open_samples"`
}

// Calibrate derives a fist ratio from recorded open-hand and fist samples.
// The threshold is placed midway between the loosest fist and the tightest
// open hand. Degenerate samples are skipped.
func Calibrate(open, fist []detector.HandLandmarks) (*Calibration, error) {
	openRatios := ratios(open)
	fistRatios := ratios(fist)

	if len(openRatios) == 0 {
		return nil, fmt.Errorf("no usable open-hand samples")
	}
	if len(fistRatios) == 0 {
		return nil, fmt.Errorf("no usable fist samples")
	}

	minOpen := openRatios[0]
	for _, r := range openRatios[1:] {
		if r < minOpen {
			minOpen = r
		}
	}
	maxFist := fistRatios[0]
	for _, r := range fistRatios[1:] {
		if r > maxFist {
			maxFist = r
		}
	}

	if maxFist >= minOpen {
		return nil, fmt.Errorf("%w: fist up to %.3f, open from %.3f", ErrOverlap, maxFist, minOpen)
	}

	return &Calibration{
		Ratio:       (maxFist + minOpen) / 2,
		MaxFist:     maxFist,
		MinOpen:     minOpen,
		FistSamples: len(fistRatios),
		OpenSamples: len(openRatios),
	}, nil
}

func ratios(hands []detector.HandLandmarks) []float64 {
	out := make([]float64, 0, len(hands))
	for i := range hands {
		if r, ok := Ratio(&hands[i]); ok {
			out = append(out, r)
		}
	}
	return out
}
