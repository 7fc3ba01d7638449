package interaction

import (
	"testing"
	"time"

	"github.com/ayusman/akshara/internal/cursor"
)

var (
	onT1 = cursor.Point{X: 55, Y: 50} // 5 from T1
	away = cursor.Point{X: 10, Y: 90}
)

func testTargets() []Target {
	return []Target{
		{ID: "T1", Position: cursor.Point{X: 50, Y: 50}},
		{ID: "T2", Position: cursor.Point{X: 75, Y: 50}},
	}
}

// driver steps a machine on a fixed tick and collects its events.
type driver struct {
	t      *testing.T
	m      *Machine
	now    time.Time
	tick   time.Duration
	events []Event
}

func newDriver(t *testing.T, config Config) *driver {
	m := NewMachine(config)
	m.SetTargets(testTargets())
	return &driver{t: t, m: m, now: time.Unix(1000, 0), tick: 50 * time.Millisecond}
}

func (d *driver) step(in Input) []Event {
	in.Now = d.now
	evs := d.m.Step(in)
	d.events = append(d.events, evs...)
	return evs
}

// hold feeds the same input for the given duration, first tick at the
// current time.
func (d *driver) hold(in Input, dur time.Duration) {
	end := d.now.Add(dur)
	for {
		d.step(in)
		if !d.now.Before(end) {
			return
		}
		d.now = d.now.Add(d.tick)
	}
}

func (d *driver) advance() {
	d.now = d.now.Add(d.tick)
}

func (d *driver) count(typ EventType) int {
	n := 0
	for _, e := range d.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func fistAt(p cursor.Point) Input { return Input{Cursor: p, HandPresent: true, IsFist: true} }
func openAt(p cursor.Point) Input { return Input{Cursor: p, HandPresent: true} }
func noHand() Input               { return Input{} }

func TestMachine_DwellFiresOnceAfterThreshold(t *testing.T) {
	d := newDriver(t, DefaultConfig())

	d.hold(fistAt(onT1), time.Second)

	if n := d.count(EventSelected); n != 1 {
		t.Fatalf("selections = %d, want 1", n)
	}
	last := d.events[len(d.events)-1]
	if last.Type != EventSelected || last.TargetID != "T1" {
		t.Errorf("last event = %+v, want selected T1", last)
	}
	if !d.m.Locked() {
		t.Error("lock should be set after selection")
	}
	if d.m.Phase() != PhaseSelected {
		t.Errorf("phase = %s, want selected", d.m.Phase())
	}

	// Keep holding: no second selection while the first is unresolved.
	d.advance()
	d.hold(fistAt(onT1), 3*time.Second)
	if n := d.count(EventSelected); n != 1 {
		t.Errorf("selections after continued hold = %d, want 1", n)
	}
}

func TestMachine_DwellJustShortDoesNotFire(t *testing.T) {
	d := newDriver(t, DefaultConfig())

	d.hold(fistAt(onT1), 950*time.Millisecond)

	if n := d.count(EventSelected); n != 0 {
		t.Fatalf("selections = %d, want 0", n)
	}
	if p := d.m.Progress(); p < 90 || p >= 100 {
		t.Errorf("progress = %f, want 95", p)
	}
}

func TestMachine_OpenResetsDwell(t *testing.T) {
	d := newDriver(t, DefaultConfig())

	d.hold(fistAt(onT1), 400*time.Millisecond)
	if p := d.m.Progress(); p < 39 || p > 41 {
		t.Fatalf("progress after 400ms = %f, want 40", p)
	}

	d.advance()
	d.step(openAt(onT1))

	if p := d.m.Progress(); p != 0 {
		t.Errorf("progress after opening = %f, want 0", p)
	}
	if d.m.Phase() != PhaseHovering {
		t.Errorf("phase = %s, want hovering", d.m.Phase())
	}
	if n := d.count(EventSelected); n != 0 {
		t.Errorf("selections = %d, want 0", n)
	}

	// A fresh engagement needs the full threshold again.
	d.advance()
	d.hold(fistAt(onT1), 900*time.Millisecond)
	if n := d.count(EventSelected); n != 0 {
		t.Errorf("selections after 900ms re-hold = %d, want 0", n)
	}
}

func TestMachine_LeavingTargetResetsDwell(t *testing.T) {
	d := newDriver(t, DefaultConfig())

	d.hold(fistAt(onT1), 600*time.Millisecond)
	d.advance()
	d.step(fistAt(away))

	if p := d.m.Progress(); p != 0 {
		t.Errorf("progress = %f, want 0", p)
	}
	if d.count(EventHoverLeave) != 1 {
		t.Errorf("expected one hover leave, events: %+v", d.events)
	}

	// Switching directly to another target restarts the count.
	d.advance()
	d.hold(fistAt(onT1), 500*time.Millisecond)
	d.advance()
	d.hold(fistAt(cursor.Point{X: 75, Y: 52}), 500*time.Millisecond)
	if n := d.count(EventSelected); n != 0 {
		t.Errorf("selections = %d, want 0", n)
	}
}

func TestMachine_OnlyNearestTargetHovers(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	// T1 at distance 5, T2 at distance 20.
	d.step(openAt(onT1))

	if len(d.events) != 1 || d.events[0].Type != EventHoverEnter || d.events[0].TargetID != "T1" {
		t.Fatalf("events = %+v, want single hover enter on T1", d.events)
	}
	if s := d.m.Status(); s.Hovered != "T1" {
		t.Errorf("hovered = %q, want T1", s.Hovered)
	}
}

func TestMachine_NoHandClearsGestureKeepsNothingElse(t *testing.T) {
	d := newDriver(t, DefaultConfig())

	d.hold(fistAt(onT1), 500*time.Millisecond)
	for i := 0; i < 5; i++ {
		d.advance()
		d.step(noHand())
	}

	s := d.m.Status()
	if s.Progress != 0 {
		t.Errorf("progress = %f, want 0", s.Progress)
	}
	if s.Hovered != "" {
		t.Errorf("hovered = %q, want cleared", s.Hovered)
	}
	if s.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", s.Phase)
	}
	if d.count(EventHoverLeave) != 1 {
		t.Errorf("hover leave count = %d, want 1", d.count(EventHoverLeave))
	}

	// Returning with a fist starts from zero.
	d.advance()
	d.hold(fistAt(onT1), 600*time.Millisecond)
	if d.count(EventSelected) != 0 {
		t.Error("dwell should have restarted after the hand left")
	}
}

func TestMachine_FeedbackWindow(t *testing.T) {
	config := DefaultConfig()
	config.FeedbackCorrect = 2 * time.Second
	config.FeedbackWrong = time.Second
	d := newDriver(t, config)

	d.hold(fistAt(onT1), time.Second)
	if !d.m.Resolve(false, d.now) {
		t.Fatal("Resolve() = false, want true")
	}
	if d.m.Resolve(true, d.now) {
		t.Error("second Resolve() should report false")
	}
	resolvedAt := d.now

	// Fist stays closed on the target through the wrong-answer window.
	d.advance()
	d.hold(fistAt(onT1), 900*time.Millisecond)
	if d.count(EventSelected) != 1 {
		t.Fatalf("selection fired during feedback")
	}
	if d.m.Phase() != PhaseFeedback || !d.m.Locked() {
		t.Fatalf("phase = %s locked = %v, want feedback and locked", d.m.Phase(), d.m.Locked())
	}
	if s := d.m.Status(); s.Correct == nil || *s.Correct {
		t.Error("status should carry correct=false during feedback")
	}

	d.now = resolvedAt.Add(time.Second)
	evs := d.step(fistAt(onT1))
	if len(evs) == 0 || evs[0].Type != EventFeedbackEnded || evs[0].Correct || evs[0].TargetID != "T1" {
		t.Fatalf("events = %+v, want feedback ended (wrong) first", evs)
	}
	if d.m.Locked() {
		t.Error("dwell policy should release the lock when feedback ends")
	}

	// Retry is allowed immediately; the dwell restarts.
	d.advance()
	d.hold(fistAt(onT1), time.Second)
	if d.count(EventSelected) != 2 {
		t.Errorf("selections = %d, want 2 after retry", d.count(EventSelected))
	}
}

func TestMachine_CorrectFeedbackUsesItsWindow(t *testing.T) {
	config := DefaultConfig()
	config.FeedbackCorrect = 2 * time.Second
	config.FeedbackWrong = 500 * time.Millisecond
	d := newDriver(t, config)

	d.hold(fistAt(onT1), time.Second)
	d.m.Resolve(true, d.now)
	start := d.now

	d.now = start.Add(1999 * time.Millisecond)
	d.step(openAt(away))
	if d.count(EventFeedbackEnded) != 0 {
		t.Fatal("feedback ended early")
	}
	d.now = start.Add(2 * time.Second)
	d.step(openAt(away))
	if d.count(EventFeedbackEnded) != 1 {
		t.Fatal("feedback did not end at deadline")
	}
}

func TestMachine_InstantPolicy(t *testing.T) {
	config := DefaultConfig()
	config.Policy = PolicyInstant
	d := newDriver(t, config)

	d.step(openAt(onT1))
	d.advance()
	evs := d.step(fistAt(onT1))
	if len(evs) != 1 || evs[0].Type != EventSelected {
		t.Fatalf("events = %+v, want immediate selection", evs)
	}
	d.m.Resolve(true, d.now)
	resolvedAt := d.now

	// Fist held past the feedback window: still locked.
	d.now = resolvedAt.Add(2 * time.Second)
	d.hold(fistAt(onT1), time.Second)
	if d.count(EventFeedbackEnded) != 1 {
		t.Fatal("feedback should have ended")
	}
	if d.count(EventSelected) != 1 {
		t.Fatalf("selections = %d, want 1 while the fist stays closed", d.count(EventSelected))
	}
	if !d.m.Locked() {
		t.Error("lock should hold until the hand re-opens")
	}

	// Open, close again: new selection.
	d.advance()
	d.step(openAt(onT1))
	if d.m.Locked() {
		t.Error("lock should clear when the hand opens after feedback")
	}
	d.advance()
	d.step(fistAt(onT1))
	if d.count(EventSelected) != 2 {
		t.Errorf("selections = %d, want 2", d.count(EventSelected))
	}
}

func TestMachine_InstantOpenDuringFeedbackReleasesAfter(t *testing.T) {
	config := DefaultConfig()
	config.Policy = PolicyInstant
	d := newDriver(t, config)

	d.step(fistAt(onT1))
	d.m.Resolve(false, d.now)

	d.advance()
	d.step(openAt(onT1))
	if !d.m.Locked() {
		t.Error("opening during feedback must not release the lock yet")
	}

	d.now = d.now.Add(3 * time.Second)
	d.step(openAt(onT1))
	if d.m.Locked() {
		t.Error("lock should release once feedback ended and the hand is open")
	}
}

func TestMachine_StaleInputIgnored(t *testing.T) {
	d := newDriver(t, DefaultConfig())

	d.hold(fistAt(onT1), 500*time.Millisecond)
	before := d.m.Progress()

	d.now = d.now.Add(-200 * time.Millisecond)
	if evs := d.step(noHand()); evs != nil {
		t.Errorf("stale step returned events %+v", evs)
	}
	if d.m.Progress() != before {
		t.Errorf("stale input changed progress: %f -> %f", before, d.m.Progress())
	}
}

func TestMachine_SetTargetsResets(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.hold(fistAt(onT1), time.Second)

	d.m.SetTargets([]Target{{ID: "X", Position: cursor.Point{X: 20, Y: 50}}})

	s := d.m.Status()
	if s.Phase != PhaseIdle || s.Locked || s.Hovered != "" || s.Selected != "" {
		t.Errorf("status after SetTargets = %+v", s)
	}
	if got := d.m.Targets()[0].HitRadius; got != DefaultHitRadius {
		t.Errorf("default radius = %f, want %f", got, DefaultHitRadius)
	}
	if d.m.Resolve(true, d.now) {
		t.Error("nothing should be pending after SetTargets")
	}
}

func TestMachine_InstantLockSurvivesNewTargets(t *testing.T) {
	config := DefaultConfig()
	config.Policy = PolicyInstant
	d := newDriver(t, config)

	d.step(fistAt(onT1))
	d.m.Resolve(true, d.now)
	d.now = d.now.Add(2 * time.Second)
	d.step(fistAt(onT1))
	if d.count(EventFeedbackEnded) != 1 || !d.m.Locked() {
		t.Fatalf("feedback ended=%d locked=%t, want 1 and locked", d.count(EventFeedbackEnded), d.m.Locked())
	}

	// The next level puts a target under the still-closed fist.
	d.m.SetTargets([]Target{{ID: "L2", Position: cursor.Point{X: 50, Y: 50}}})
	if !d.m.Locked() {
		t.Fatal("new targets released the lock of a closed fist")
	}
	d.advance()
	d.step(fistAt(onT1))
	if d.count(EventSelected) != 1 {
		t.Fatalf("selections = %d, want 1 while the hand stays closed", d.count(EventSelected))
	}

	d.advance()
	d.step(openAt(onT1))
	d.advance()
	evs := d.step(fistAt(onT1))
	if len(evs) != 1 || evs[0].Type != EventSelected || evs[0].TargetID != "L2" {
		t.Errorf("events after re-opening = %+v, want L2 selected", evs)
	}
}

func TestMachine_SetConfigPolicyChangeResets(t *testing.T) {
	d := newDriver(t, DefaultConfig())
	d.hold(fistAt(onT1), 500*time.Millisecond)

	config := d.m.Config()
	config.DwellThreshold = 2 * time.Second
	d.m.SetConfig(config)
	if d.m.Phase() != PhaseDwelling {
		t.Errorf("threshold change should keep the engagement, phase = %s", d.m.Phase())
	}

	config.Policy = PolicyInstant
	d.m.SetConfig(config)
	if d.m.Phase() != PhaseIdle {
		t.Errorf("policy change should reset, phase = %s", d.m.Phase())
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown policy", mutate: func(c *Config) { c.Policy = "hover" }},
		{name: "zero radius", mutate: func(c *Config) { c.HitRadius = 0 }},
		{name: "negative dwell", mutate: func(c *Config) { c.DwellThreshold = -time.Second }},
		{name: "negative feedback", mutate: func(c *Config) { c.FeedbackWrong = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPhase_TextRoundTrip(t *testing.T) {
	for p := PhaseIdle; p <= PhaseFeedback; p++ {
		b, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) error = %v", p, err)
		}
		var got Phase
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", b, err)
		}
		if got != p {
			t.Errorf("round trip %q = %v, want %v", b, got, p)
		}
	}

	var p Phase
	if err := p.UnmarshalText([]byte("waving")); err == nil {
		t.Error("expected error for unknown phase")
	}
}
