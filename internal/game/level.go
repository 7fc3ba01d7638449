// Package game holds the AR Hunt curriculum and the per-player session that
// judges selections and advances through levels.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/akshara/internal/cursor"
	"github.com/ayusman/akshara/internal/interaction"
)

// ErrNoLevels is returned when a session is started without levels.
var ErrNoLevels = errors.New("no levels")

// ErrUnknownOption is returned when a selection does not match any option of
// the current level.
var ErrUnknownOption = errors.New("unknown option")

// Slot is where an option is placed on screen.
type Slot string

const (
	SlotTop    Slot = "top"
	SlotBottom Slot = "bottom"
	SlotLeft   Slot = "left"
	SlotRight  Slot = "right"
)

// Slots lists the slots in the order options are assigned to them.
var Slots = []Slot{SlotTop, SlotBottom, SlotLeft, SlotRight}

// Position returns the slot's screen position in percent. Unknown slots sit
// at the center.
func (s Slot) Position() cursor.Point {
	switch s {
	case SlotTop:
		return cursor.Point{X: 50, Y: 25}
	case SlotBottom:
		return cursor.Point{X: 50, Y: 75}
	case SlotLeft:
		return cursor.Point{X: 20, Y: 50}
	case SlotRight:
		return cursor.Point{X: 80, Y: 50}
	}
	return cursor.Center
}

// Valid reports whether s is one of the four slots.
func (s Slot) Valid() bool {
	for _, v := range Slots {
		if s == v {
			return true
		}
	}
	return false
}

// Option is one selectable answer.
type Option struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Letter   string `json:"letter,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Slot     Slot   `json:"slot"`
	// Correct is set when the backend decides correctness. When nil the
	// option is correct if its letter matches the level target.
	Correct *bool `json:"is_correct,omitempty"`
}

// Level is one question: a prompt and up to four options.
type Level struct {
	ID       string   `json:"id"`
	TaskID   string   `json:"task_id,omitempty"`
	Level    int      `json:"level"`
	Epoch    int      `json:"epoch"`
	Target   string   `json:"target"`
	Prompt   string   `json:"prompt"`
	AudioURL string   `json:"audio_url,omitempty"`
	Options  []Option `json:"options"`
}

// Validate checks that the level can be played.
func (l *Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("level id is required")
	}
	if len(l.Options) == 0 {
		return fmt.Errorf("level %s: at least one option is required", l.ID)
	}
	if len(l.Options) > len(Slots) {
		return fmt.Errorf("level %s: at most %d options, got %d", l.ID, len(Slots), len(l.Options))
	}

	ids := make(map[string]bool, len(l.Options))
	slots := make(map[Slot]bool, len(l.Options))
	for _, o := range l.Options {
		if o.ID == "" {
			return fmt.Errorf("level %s: option id is required", l.ID)
		}
		if ids[o.ID] {
			return fmt.Errorf("level %s: duplicate option %s", l.ID, o.ID)
		}
		ids[o.ID] = true
		if o.Slot != "" {
			if !o.Slot.Valid() {
				return fmt.Errorf("level %s: invalid slot %q", l.ID, o.Slot)
			}
			if slots[o.Slot] {
				return fmt.Errorf("level %s: slot %s used twice", l.ID, o.Slot)
			}
			slots[o.Slot] = true
		}
	}
	return nil
}

// AssignSlots gives every option without a slot the next free one, in
// top, bottom, left, right order.
func (l *Level) AssignSlots() {
	used := make(map[Slot]bool, len(l.Options))
	for _, o := range l.Options {
		if o.Slot.Valid() {
			used[o.Slot] = true
		}
	}
	next := 0
	for i := range l.Options {
		if l.Options[i].Slot.Valid() {
			continue
		}
		for next < len(Slots) && used[Slots[next]] {
			next++
		}
		if next == len(Slots) {
			return
		}
		l.Options[i].Slot = Slots[next]
		used[Slots[next]] = true
	}
}

// Option returns the option with the given id.
func (l *Level) Option(id string) (Option, bool) {
	for _, o := range l.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// IsCorrect reports whether choosing o answers the level.
func (l *Level) IsCorrect(o Option) bool {
	if o.Correct != nil {
		return *o.Correct
	}
	return o.Letter != "" && strings.EqualFold(o.Letter, l.Target)
}

// Targets returns one hit target per option.
func (l *Level) Targets(hitRadius float64) []interaction.Target {
	targets := make([]interaction.Target, len(l.Options))
	for i, o := range l.Options {
		targets[i] = interaction.Target{
			ID:        o.ID,
			Position:  o.Slot.Position(),
			HitRadius: hitRadius,
		}
	}
	return targets
}
