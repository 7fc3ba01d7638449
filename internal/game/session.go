package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stats summarizes a session.
type Stats struct {
	Correct  int  `json:"correct"`
	Wrong    int  `json:"wrong"`
	Index    int  `json:"index"`
	Total    int  `json:"total"`
	GameOver bool `json:"game_over"`
}

// Judgement is the outcome of one selection.
type Judgement struct {
	Level        Level
	Option       Option
	Correct      bool
	ResponseTime time.Duration
}

// Session walks a player through an ordered list of levels. It is not safe
// for concurrent use.
type Session struct {
	ID string

	levels     []Level
	index      int
	correct    int
	wrong      int
	over       bool
	levelStart time.Time
}

// NewSession starts a session at the first level.
func NewSession(levels []Level, now time.Time) (*Session, error) {
	if len(levels) == 0 {
		return nil, ErrNoLevels
	}
	copied := make([]Level, len(levels))
	for i, l := range levels {
		l.Options = append([]Option(nil), l.Options...)
		l.AssignSlots()
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		copied[i] = l
	}
	return &Session{
		ID:         uuid.New().String(),
		levels:     copied,
		levelStart: now,
	}, nil
}

// Current returns the level being played. It reports false once the game is
// over.
func (s *Session) Current() (Level, bool) {
	if s.over {
		return Level{}, false
	}
	return s.levels[s.index], true
}

// Levels returns the session's levels.
func (s *Session) Levels() []Level {
	return append([]Level(nil), s.levels...)
}

// Judge scores a selection of optionID against the current level. The
// response time is measured from when the level was shown.
func (s *Session) Judge(optionID string, now time.Time) (Judgement, error) {
	level, ok := s.Current()
	if !ok {
		return Judgement{}, fmt.Errorf("game over")
	}
	opt, ok := level.Option(optionID)
	if !ok {
		return Judgement{}, fmt.Errorf("%w: %s", ErrUnknownOption, optionID)
	}
	correct := level.IsCorrect(opt)
	if correct {
		s.correct++
	} else {
		s.wrong++
	}
	return Judgement{
		Level:        level,
		Option:       opt,
		Correct:      correct,
		ResponseTime: now.Sub(s.levelStart),
	}, nil
}

// Finish closes the feedback window for the last judgement. A correct answer
// advances to the next level, or ends the game after the last one. A wrong
// answer keeps the level for a retry. It reports whether the level changed.
func (s *Session) Finish(correct bool, now time.Time) bool {
	if s.over || !correct {
		return false
	}
	if s.index == len(s.levels)-1 {
		s.over = true
		return true
	}
	s.index++
	s.levelStart = now
	return true
}

// GameOver reports whether every level has been answered.
func (s *Session) GameOver() bool {
	return s.over
}

// Stats returns the running score.
func (s *Session) Stats() Stats {
	return Stats{
		Correct:  s.correct,
		Wrong:    s.wrong,
		Index:    s.index,
		Total:    len(s.levels),
		GameOver: s.over,
	}
}

// Restart returns to the first level with a fresh id and score.
func (s *Session) Restart(now time.Time) {
	s.ID = uuid.New().String()
	s.index = 0
	s.correct = 0
	s.wrong = 0
	s.over = false
	s.levelStart = now
}
