// Package tracker runs the per-frame loop that turns camera frames into a
// smoothed cursor, fist state and level selections.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kataras/golog"

	"github.com/ayusman/akshara/internal/backend"
	"github.com/ayusman/akshara/internal/capture"
	"github.com/ayusman/akshara/internal/config"
	"github.com/ayusman/akshara/internal/cursor"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/interaction"
	"github.com/ayusman/akshara/internal/plugin"
	"github.com/ayusman/akshara/internal/store"
)

var logger = golog.Child("[tracker]")

var (
	// ErrInitFailed is returned when the camera or detector could not be
	// brought up within the configured attempts.
	ErrInitFailed = errors.New("tracker initialization failed")

	// ErrStopped is returned when starting a tracker that was stopped.
	ErrStopped = errors.New("tracker stopped")
)

// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
const DefaultMotionThreshold = 1.0

// previewWindow keeps JPEG encoding on while a preview reader is active.
const previewWindow = 2 * time.Second

// Reporter queues progress for the backend. *backend.Reporter implements it.
type Reporter interface {
	Submit(p backend.Progress) bool
	SubmitScore(s backend.Score) bool
}

// Hooks notifies feedback plugins. *plugin.Dispatcher implements it.
type Hooks interface {
	NotifySelection(s plugin.Selection) bool
	NotifyGameOver(g plugin.GameOver) bool
}

// AttemptRecorder persists selections. *store.AttemptRepository implements it.
type AttemptRecorder interface {
	Create(a *store.Attempt) error
}

// Config holds the tracker's collaborators and settings. Camera, Detector
// and Levels are required; the rest are optional.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Levels   []game.Level

	Attempts AttemptRecorder
	Reporter Reporter
	Hooks    Hooks

	RenderFPS       int
	MotionGate      bool
	MotionThreshold float64
	MaxReuseFrames  int

	InitAttempts int
	InitBackoff  time.Duration
	InitTimeout  time.Duration

	UserID   string
	ModuleID string

	Tuning config.Tuning
}

// Selection is a judged selection delivered to listeners.
type Selection struct {
	SessionID  string    `json:"sessionId"`
	TargetID   string    `json:"targetId"`
	Name       string    `json:"name"`
	Correct    bool      `json:"isCorrect"`
	Level      int       `json:"level"`
	ResponseMs int64     `json:"responseMs"`
	At         time.Time `json:"at"`
}

// Snapshot is a consistent view of the tracker for readers.
type Snapshot struct {
	Cursor        cursor.State       `json:"cursor"`
	HandPresent   bool               `json:"handPresent"`
	Interaction   interaction.Status `json:"interaction"`
	Level         *game.Level        `json:"level,omitempty"`
	Session       string             `json:"session"`
	Stats         game.Stats         `json:"stats"`
	Enabled       bool               `json:"enabled"`
	Running       bool               `json:"running"`
	Error         string             `json:"error,omitempty"`
	LastSelection *Selection         `json:"lastSelection,omitempty"`
	At            time.Time          `json:"at"`
}

// Tracker owns the camera, detector and selection machine. The loop is the
// only writer; readers use Current and Snapshot.
type Tracker struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	gate     *capture.Gate

	mu          sync.RWMutex
	tuning      config.Tuning
	mapper      cursor.Mapper
	smoother    *cursor.Smoother
	machine     *interaction.Machine
	session     *game.Session
	state       cursor.State
	handPresent bool
	hand        detector.HandLandmarks
	enabled     bool
	running     bool
	err         error
	last        *Selection
	at          time.Time
	retarget    bool
	listeners   []func(Selection)

	previewMu   sync.Mutex
	preview     []byte
	previewWant time.Time

	// lastHands is reused while the motion gate skips inference.
	lastHands []detector.HandLandmarks
	epoch     time.Time
	lastTS    int64

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopped  bool
}

// New creates a tracker. It does not touch the camera until Start.
func New(cfg Config) (*Tracker, error) {
	if cfg.Camera == nil || cfg.Detector == nil {
		return nil, fmt.Errorf("tracker needs a camera and a detector")
	}
	if cfg.RenderFPS <= 0 {
		cfg.RenderFPS = capture.DefaultFPS
	}
	if cfg.MotionThreshold <= 0 {
		cfg.MotionThreshold = DefaultMotionThreshold
	}
	if cfg.InitAttempts <= 0 {
		cfg.InitAttempts = 1
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 15 * time.Second
	}
	if cfg.Tuning == (config.Tuning{}) {
		cfg.Tuning = config.DefaultTuning()
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}

	now := time.Now()
	session, err := game.NewSession(cfg.Levels, now)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		config:   cfg,
		camera:   cfg.Camera,
		detector: cfg.Detector,
		tuning:   cfg.Tuning,
		mapper:   cfg.Tuning.Mapper(),
		smoother: cursor.NewSmoother(cfg.Tuning.Smoothing, cursor.Center),
		machine:  interaction.NewMachine(cfg.Tuning.Machine()),
		session:  session,
		state:    cursor.Default(),
		enabled:  true,
		epoch:    now,
	}
	if cfg.MotionGate {
		t.gate = capture.NewGate(cfg.MotionThreshold, cfg.MaxReuseFrames)
	}
	t.showLevel()
	return t, nil
}

// Start opens the camera and warms the detector, retrying with exponential
// backoff, then starts the loop. A failure is terminal and is also reported
// through Snapshot.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return ErrStopped
	}
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := t.initialize(ctx); err != nil {
		err = fmt.Errorf("%w: %v", ErrInitFailed, err)
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		logger.Errorf("%v", err)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.stopped {
		// Stopped while initializing; release what initOnce opened.
		t.mu.Unlock()
		cancel()
		t.camera.Close()
		t.detector.Close()
		return ErrStopped
	}
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true
	t.err = nil
	done := t.done
	t.mu.Unlock()

	go t.run(loopCtx, done)
	logger.Infof("tracking at %d fps", t.config.RenderFPS)
	return nil
}

func (t *Tracker) initialize(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.config.InitBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(t.config.InitAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return t.initOnce(ctx)
	}, policy, func(err error, wait time.Duration) {
		logger.Warnf("init attempt %d/%d: %v (retrying in %s)", attempt, t.config.InitAttempts, err, wait)
	})
}

func (t *Tracker) initOnce(ctx context.Context) error {
	if err := t.camera.Open(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	w, ok := t.detector.(detector.Warmer)
	if !ok {
		return nil
	}
	warmCtx, cancel := context.WithTimeout(ctx, t.config.InitTimeout)
	defer cancel()
	if err := w.Warmup(warmCtx); err != nil {
		t.camera.Close()
		return fmt.Errorf("detector: %w", err)
	}
	return nil
}

// Stop ends the loop and releases the camera and detector. It is safe to
// call more than once.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		cancel, done := t.cancel, t.done
		t.running = false
		t.stopped = true
		t.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}

		if err := t.camera.Close(); err != nil {
			logger.Warnf("close camera: %v", err)
		}
		if t.gate != nil {
			t.gate.Close()
		}
		if err := t.detector.Close(); err != nil {
			logger.Warnf("close detector: %v", err)
		}
		logger.Infof("tracking stopped")
	})
}

// OnSelection registers a listener for judged selections. Listeners run on
// the loop goroutine and must not block.
func (t *Tracker) OnSelection(fn func(Selection)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// SetEnabled pauses or resumes frame processing. Pausing releases any hover
// so no dwell survives the pause. A selection already in its feedback window
// is kept and finishes on the first tick after resuming.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled == enabled {
		return
	}
	t.enabled = enabled
	if !enabled {
		t.handPresent = false
		t.state.IsFist = false
		t.state.Progress = 0
		switch t.machine.Phase() {
		case interaction.PhaseSelected, interaction.PhaseFeedback:
		default:
			t.showLevel()
		}
		if t.gate != nil {
			t.gate.Reset()
		}
	}
}

// Enabled reports whether frames are processed.
func (t *Tracker) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Tuning returns the active thresholds.
func (t *Tracker) Tuning() config.Tuning {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tuning
}

// SetTuning applies new thresholds to the running loop.
func (t *Tracker) SetTuning(tu config.Tuning) error {
	if err := tu.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	radiusChanged := tu.HitRadius != t.tuning.HitRadius
	t.tuning = tu
	t.mapper = tu.Mapper()
	t.smoother.Alpha = tu.Smoothing
	t.machine.SetConfig(tu.Machine())
	if radiusChanged {
		switch t.machine.Phase() {
		case interaction.PhaseSelected, interaction.PhaseFeedback:
			t.retarget = true
		default:
			t.setTargets()
		}
	}
	logger.Infof("tuning updated: policy=%s dwell=%s radius=%g", tu.Policy, tu.Dwell, tu.HitRadius)
	return nil
}

// Restart starts a new game. Non-empty levels replace the curriculum.
func (t *Tracker) Restart(levels []game.Level) error {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(levels) > 0 {
		session, err := game.NewSession(levels, now)
		if err != nil {
			return err
		}
		t.session = session
	} else {
		t.session.Restart(now)
	}
	t.last = nil
	t.showLevel()
	logger.Infof("game restarted (%d levels)", t.session.Stats().Total)
	return nil
}

// Current returns the latest cursor state.
func (t *Tracker) Current() cursor.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Snapshot returns the full tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Cursor:      t.state,
		HandPresent: t.handPresent,
		Interaction: t.machine.Status(),
		Session:     t.session.ID,
		Stats:       t.session.Stats(),
		Enabled:     t.enabled,
		Running:     t.running,
		At:          t.at,
	}
	if level, ok := t.session.Current(); ok {
		s.Level = &level
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	if t.last != nil {
		sel := *t.last
		s.LastSelection = &sel
	}
	return s
}

// LastHand returns the most recent detected hand. It reports false while no
// hand is in view.
func (t *Tracker) LastHand() (detector.HandLandmarks, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hand, t.handPresent
}

// Preview returns the latest frame as JPEG, or nil if none is available yet.
// Calling it keeps preview encoding on for a short while.
func (t *Tracker) Preview() []byte {
	t.previewMu.Lock()
	defer t.previewMu.Unlock()
	t.previewWant = time.Now()
	return t.preview
}

// showLevel installs the current level's targets on a fresh machine cycle.
// The caller holds t.mu.
func (t *Tracker) showLevel() {
	t.setTargets()
	t.state.Progress = 0
}

func (t *Tracker) setTargets() {
	t.retarget = false
	level, ok := t.session.Current()
	if !ok {
		t.machine.SetTargets(nil)
		return
	}
	t.machine.SetTargets(level.Targets(t.tuning.HitRadius))
}
