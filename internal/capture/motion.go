package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel applied before differencing.
	blurKernel = 21
	// pixelDelta is the per-pixel intensity change that counts as motion.
	pixelDelta = 25
)

// MotionDetector measures how much of the image changed since the previous
// frame. The threshold is a percentage of pixels.
type MotionDetector struct {
	mu          sync.Mutex
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether the
// change exceeds the threshold, along with the changed percentage. The first
// frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset drops the baseline; the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat. The detector remains usable.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetThreshold changes the motion threshold. Non-positive values are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Gate decides per frame whether to run the landmark model. While the scene
// is static the previous detection may be reused for up to maxReuse frames,
// after which inference is forced so a still hand keeps being tracked.
// Gate is safe for concurrent use.
type Gate struct {
	motion   *MotionDetector
	maxReuse int

	mu     sync.Mutex
	reused int
	primed bool
}

// NewGate creates a gate over a motion detector with the given threshold.
func NewGate(threshold float64, maxReuse int) *Gate {
	return &Gate{motion: NewMotionDetector(threshold), maxReuse: maxReuse}
}

// ShouldDetect reports whether frame needs fresh inference. A frame that
// cannot be compared always needs it.
func (g *Gate) ShouldDetect(frame *gocv.Mat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		g.reused = 0
		return true
	}
	moved, _ := g.motion.Detect(frame)
	if !g.primed || moved || g.reused >= g.maxReuse {
		g.primed = true
		g.reused = 0
		return true
	}
	g.reused++
	return false
}

// Reset forces inference on the next frame.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.motion.Reset()
	g.reused = 0
	g.primed = false
}

// Close releases the gate's buffers.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.motion.Close()
}
