package detector

import (
	"context"
	"errors"
	"time"

	"github.com/kataras/golog"
	"gocv.io/x/gocv"
)

var logger = golog.Child("[detector]")

// ErrNotReady is returned when the detector backend could not be brought up.
var ErrNotReady = errors.New("detector not ready")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame captured at timestampMs and returns
	// detected hand landmarks. Returns an empty slice if no hands are detected.
	// Timestamps must be strictly increasing between calls.
	Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Warmer is implemented by detectors with an expensive start-up (model load)
// that can be performed ahead of the first frame.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// IdleShutdown stops the model process after this long without frames.
	IdleShutdown time.Duration

	// StartTimeout bounds a cold start inside Detect, e.g. after an idle
	// shutdown.
	StartTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleShutdown:    30 * time.Second,
		StartTimeout:    15 * time.Second,
	}
}
