package interaction

import (
	"fmt"
	"time"

	"github.com/ayusman/akshara/internal/cursor"
)

// Policy decides when a fist over a target becomes a selection.
type Policy string

const (
	// PolicyDwell fires after the fist is held over the same target for
	// DwellThreshold.
	PolicyDwell Policy = "dwell"
	// PolicyInstant fires on the first fist tick over a target. The lock is
	// released once feedback has ended and the hand has re-opened.
	PolicyInstant Policy = "instant"
)

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyDwell, PolicyInstant:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown selection policy %q", s)
}

// Phase is the machine's position in the engagement cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHovering
	PhaseDwelling
	PhaseSelected
	PhaseFeedback
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHovering:
		return "hovering"
	case PhaseDwelling:
		return "dwelling"
	case PhaseSelected:
		return "selected"
	case PhaseFeedback:
		return "feedback"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for q := PhaseIdle; q <= PhaseFeedback; q++ {
		if q.String() == string(b) {
			*p = q
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Config holds the selection thresholds.
type Config struct {
	Policy Policy
	// HitRadius is applied to targets that carry no radius of their own.
	HitRadius       float64
	DwellThreshold  time.Duration
	FeedbackCorrect time.Duration
	FeedbackWrong   time.Duration
}

// DefaultConfig returns the dwell policy with a one second hold and a two
// second feedback window.
func DefaultConfig() Config {
	return Config{
		Policy:          PolicyDwell,
		HitRadius:       DefaultHitRadius,
		DwellThreshold:  time.Second,
		FeedbackCorrect: 2 * time.Second,
		FeedbackWrong:   2 * time.Second,
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.HitRadius <= 0 {
		return fmt.Errorf("hit radius must be positive, got %v", c.HitRadius)
	}
	if c.DwellThreshold < 0 {
		return fmt.Errorf("dwell threshold must not be negative, got %v", c.DwellThreshold)
	}
	if c.FeedbackCorrect < 0 || c.FeedbackWrong < 0 {
		return fmt.Errorf("feedback durations must not be negative")
	}
	return nil
}

// Input is one tick's worth of cursor information.
type Input struct {
	Now         time.Time
	Cursor      cursor.Point
	HandPresent bool
	IsFist      bool
}

// EventType identifies a machine event.
type EventType string

const (
	EventHoverEnter    EventType = "hover_enter"
	EventHoverLeave    EventType = "hover_leave"
	EventSelected      EventType = "selected"
	EventFeedbackEnded EventType = "feedback_ended"
)

// Event is emitted by Step. Correct is meaningful for EventFeedbackEnded.
type Event struct {
	Type     EventType `json:"type"`
	TargetID string    `json:"targetId,omitempty"`
	Correct  bool      `json:"correct,omitempty"`
	At       time.Time `json:"at"`
}

// Status is a read-only view of the machine.
type Status struct {
	Phase    Phase   `json:"phase"`
	Hovered  string  `json:"hovered,omitempty"`
	Selected string  `json:"selected,omitempty"`
	Locked   bool    `json:"locked"`
	Progress float64 `json:"progress"`
	Correct  *bool   `json:"correct,omitempty"`
}

// Machine is the selection state machine. It is not safe for concurrent use;
// the tracker loop is its only caller.
type Machine struct {
	config  Config
	targets []Target

	phase    Phase
	hovered  string
	selected string
	dwell    time.Duration
	lock     bool
	correct  bool
	deadline time.Time
	last     time.Time
}

// NewMachine creates a machine in the idle phase.
func NewMachine(config Config) *Machine {
	if config.Policy == "" {
		config.Policy = PolicyDwell
	}
	if config.HitRadius <= 0 {
		config.HitRadius = DefaultHitRadius
	}
	return &Machine{config: config}
}

// Config returns the machine's thresholds.
func (m *Machine) Config() Config {
	return m.config
}

// SetConfig replaces the thresholds. A policy change resets the engagement
// cycle so the two policies never mix.
func (m *Machine) SetConfig(config Config) {
	if config.Policy == "" {
		config.Policy = m.config.Policy
	}
	if config.HitRadius <= 0 {
		config.HitRadius = m.config.HitRadius
	}
	policyChanged := config.Policy != m.config.Policy
	m.config = config
	if policyChanged {
		m.reset()
	}
	m.targets = m.withRadius(m.targets)
}

// SetTargets installs the targets for a new level and resets everything but
// the last tick time. Under the instant policy a held lock survives, so a
// fist kept closed across levels does not select on the new one.
func (m *Machine) SetTargets(targets []Target) {
	lock := m.lock && m.config.Policy == PolicyInstant
	m.targets = m.withRadius(targets)
	m.reset()
	m.lock = lock
}

// Targets returns the current targets.
func (m *Machine) Targets() []Target {
	return append([]Target(nil), m.targets...)
}

func (m *Machine) withRadius(targets []Target) []Target {
	out := make([]Target, len(targets))
	for i, t := range targets {
		if t.HitRadius <= 0 {
			t.HitRadius = m.config.HitRadius
		}
		out[i] = t
	}
	return out
}

func (m *Machine) reset() {
	m.phase = PhaseIdle
	m.hovered = ""
	m.selected = ""
	m.dwell = 0
	m.lock = false
	m.correct = false
	m.deadline = time.Time{}
}

// Step advances the machine by one tick. Inputs older than the last
// processed tick are ignored.
func (m *Machine) Step(in Input) []Event {
	if !m.last.IsZero() && in.Now.Before(m.last) {
		return nil
	}
	var dt time.Duration
	if !m.last.IsZero() {
		dt = in.Now.Sub(m.last)
	}
	m.last = in.Now

	var events []Event
	fist := in.HandPresent && in.IsFist

	if m.phase == PhaseFeedback && !in.Now.Before(m.deadline) {
		events = append(events, Event{Type: EventFeedbackEnded, TargetID: m.selected, Correct: m.correct, At: in.Now})
		m.phase = PhaseIdle
		m.selected = ""
		m.deadline = time.Time{}
		if m.config.Policy == PolicyDwell {
			m.lock = false
		}
	}

	switch m.phase {
	case PhaseSelected, PhaseFeedback:
		m.dwell = 0
		return events
	}

	if m.lock && !fist {
		m.lock = false
	}

	var hit Target
	var ok bool
	if in.HandPresent {
		hit, ok = HitTest(in.Cursor, m.targets)
	}

	if m.hovered != "" && (!ok || hit.ID != m.hovered) {
		events = append(events, Event{Type: EventHoverLeave, TargetID: m.hovered, At: in.Now})
		m.hovered = ""
		m.phase = PhaseIdle
		m.dwell = 0
	}
	if ok && m.hovered == "" {
		m.hovered = hit.ID
		events = append(events, Event{Type: EventHoverEnter, TargetID: hit.ID, At: in.Now})
	}

	if m.hovered == "" {
		m.phase = PhaseIdle
		m.dwell = 0
		return events
	}
	if !fist || m.lock {
		m.phase = PhaseHovering
		m.dwell = 0
		return events
	}

	switch m.config.Policy {
	case PolicyInstant:
		return append(events, m.fire(in.Now))
	default:
		if m.phase == PhaseDwelling {
			m.dwell += dt
		} else {
			m.phase = PhaseDwelling
			m.dwell = 0
		}
		if m.dwell >= m.config.DwellThreshold {
			return append(events, m.fire(in.Now))
		}
	}
	return events
}

func (m *Machine) fire(now time.Time) Event {
	m.phase = PhaseSelected
	m.selected = m.hovered
	m.lock = true
	m.dwell = 0
	return Event{Type: EventSelected, TargetID: m.selected, At: now}
}

// Resolve moves a pending selection into the feedback window. It reports
// false when no selection is pending.
func (m *Machine) Resolve(correct bool, now time.Time) bool {
	if m.phase != PhaseSelected {
		return false
	}
	m.phase = PhaseFeedback
	m.correct = correct
	window := m.config.FeedbackWrong
	if correct {
		window = m.config.FeedbackCorrect
	}
	m.deadline = now.Add(window)
	return true
}

// Progress returns the dwell progress, 0-100.
func (m *Machine) Progress() float64 {
	if m.phase != PhaseDwelling || m.config.DwellThreshold <= 0 {
		return 0
	}
	p := float64(m.dwell) / float64(m.config.DwellThreshold) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Locked reports whether the selection lock is held.
func (m *Machine) Locked() bool {
	return m.lock
}

// Status returns a snapshot of the machine.
func (m *Machine) Status() Status {
	s := Status{
		Phase:    m.phase,
		Hovered:  m.hovered,
		Selected: m.selected,
		Locked:   m.lock,
		Progress: m.Progress(),
	}
	if m.phase == PhaseFeedback {
		c := m.correct
		s.Correct = &c
	}
	return s
}
