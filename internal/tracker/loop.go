package tracker

import (
	"context"
	"time"

	"github.com/ayusman/akshara/internal/backend"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/gesture"
	"github.com/ayusman/akshara/internal/interaction"
	"github.com/ayusman/akshara/internal/plugin"
	"github.com/ayusman/akshara/internal/store"
	"gocv.io/x/gocv"
)

// run ticks at RenderFPS until ctx is cancelled.
//
// Each tick:
//  1. read a frame
//  2. skip inference if the motion gate says the scene is static
//  3. detect landmarks with a monotonic timestamp
//  4. map and smooth the index fingertip, classify the fist
//  5. step the selection machine and route its events
func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(t.config.RenderFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.tick(now)
		}
	}
}

// outcome carries the side effects of one judged selection out of the lock.
type outcome struct {
	judgement game.Judgement
	session   string
	selection Selection
}

// tick processes one frame.
func (t *Tracker) tick(now time.Time) {
	if !t.Enabled() {
		return
	}

	frame, err := t.camera.ReadFrame()
	if err != nil {
		logger.Debugf("read frame: %v", err)
		return
	}
	defer frame.Close()

	t.capturePreview(frame, now)

	hands, err := t.detect(frame, now)
	if err != nil {
		logger.Debugf("detect: %v", err)
		return
	}

	outcomes, over := t.update(now, hands)
	t.publish(outcomes, over)
}

// detect runs the detector, or reuses the previous result while the scene
// is static.
func (t *Tracker) detect(frame *gocv.Mat, now time.Time) ([]detector.HandLandmarks, error) {
	if t.gate != nil && !t.gate.ShouldDetect(frame) {
		return t.lastHands, nil
	}

	ts := now.Sub(t.epoch).Milliseconds()
	if ts <= t.lastTS {
		ts = t.lastTS + 1
	}
	t.lastTS = ts

	hands, err := t.detector.Detect(frame, ts)
	if err != nil {
		return nil, err
	}
	t.lastHands = hands
	return hands, nil
}

// update advances the cursor and the machine. It returns the selections to
// publish and the final stats when the game just ended.
func (t *Tracker) update(now time.Time, hands []detector.HandLandmarks) ([]outcome, *game.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var hand *detector.HandLandmarks
	if len(hands) > 0 {
		hand = &hands[0]
	}

	// Without a hand the cursor stays where it was last drawn.
	fist := false
	pos := t.smoother.Position()
	if hand != nil {
		t.hand = *hand
		t.smoother.SetTarget(t.mapper.MapHand(hand))
		fist = gesture.IsFist(hand, t.tuning.FistRatio)
		pos = t.smoother.Step()
	}

	events := t.machine.Step(interaction.Input{
		Now:         now,
		Cursor:      pos,
		HandPresent: hand != nil,
		IsFist:      fist,
	})

	var outcomes []outcome
	var over *game.Stats
	for _, ev := range events {
		switch ev.Type {
		case interaction.EventSelected:
			if o, ok := t.judge(ev, now); ok {
				outcomes = append(outcomes, o)
			}
		case interaction.EventFeedbackEnded:
			if t.session.Finish(ev.Correct, now) {
				if t.session.GameOver() {
					st := t.session.Stats()
					over = &st
					logger.Infof("game over: %d/%d (%d wrong)", st.Correct, st.Total, st.Wrong)
				}
				t.showLevel()
			} else if t.retarget {
				t.setTargets()
			}
		case interaction.EventHoverEnter, interaction.EventHoverLeave:
			logger.Debugf("%s %s", ev.Type, ev.TargetID)
		}
	}

	t.state.X = pos.X
	t.state.Y = pos.Y
	t.state.IsFist = fist
	t.state.Progress = t.machine.Progress()
	t.handPresent = hand != nil
	t.at = now
	return outcomes, over
}

// judge scores a selection and opens its feedback window. The caller holds t.mu.
func (t *Tracker) judge(ev interaction.Event, now time.Time) (outcome, bool) {
	j, err := t.session.Judge(ev.TargetID, now)
	if err != nil {
		logger.Warnf("judge %s: %v", ev.TargetID, err)
		t.machine.Resolve(false, now)
		return outcome{}, false
	}
	t.machine.Resolve(j.Correct, now)

	sel := Selection{
		SessionID:  t.session.ID,
		TargetID:   j.Option.ID,
		Name:       j.Option.Name,
		Correct:    j.Correct,
		Level:      j.Level.Level,
		ResponseMs: j.ResponseTime.Milliseconds(),
		At:         now,
	}
	t.last = &sel
	logger.Infof("selected %s (%s) correct=%t in %dms", sel.TargetID, sel.Name, sel.Correct, sel.ResponseMs)
	return outcome{judgement: j, session: t.session.ID, selection: sel}, true
}

// publish records, reports and announces outcomes without holding t.mu.
func (t *Tracker) publish(outcomes []outcome, over *game.Stats) {
	if len(outcomes) == 0 && over == nil {
		return
	}

	t.mu.RLock()
	listeners := append(([]func(Selection))(nil), t.listeners...)
	sessionID := t.session.ID
	t.mu.RUnlock()

	for _, o := range outcomes {
		j := o.judgement
		attempt := store.Attempt{
			SessionID:  o.session,
			LevelID:    j.Level.ID,
			OptionID:   j.Option.ID,
			Correct:    j.Correct,
			ResponseMs: o.selection.ResponseMs,
			CreatedAt:  o.selection.At,
		}
		if t.config.Attempts != nil {
			if err := t.config.Attempts.Create(&attempt); err != nil {
				logger.Warnf("store attempt: %v", err)
			}
		}

		if t.config.Reporter != nil {
			t.config.Reporter.Submit(backend.Progress{
				UserID:         t.config.UserID,
				ModuleID:       t.config.ModuleID,
				Level:          j.Level.Level,
				Epoch:          j.Level.Epoch,
				SelectedID:     j.Option.ID,
				IsCorrect:      j.Correct,
				ResponseTimeMs: o.selection.ResponseMs,
				Timestamp:      o.selection.At,
				AttemptID:      attempt.ID,
			})
		}

		if t.config.Hooks != nil {
			t.config.Hooks.NotifySelection(plugin.Selection{
				TargetID: j.Option.ID,
				Name:     j.Option.Name,
				Letter:   j.Option.Letter,
				Correct:  j.Correct,
				Level:    j.Level.Level,
				Prompt:   j.Level.Prompt,
			})
		}

		for _, fn := range listeners {
			fn(o.selection)
		}
	}

	if over != nil {
		if t.config.Reporter != nil {
			t.config.Reporter.SubmitScore(backend.Score{
				ModuleID:       t.config.ModuleID,
				Score:          over.Correct,
				TotalQuestions: over.Total,
			})
		}
		if t.config.Hooks != nil {
			t.config.Hooks.NotifyGameOver(plugin.GameOver{
				SessionID: sessionID,
				Score:     over.Correct,
				Total:     over.Total,
				Wrong:     over.Wrong,
			})
		}
	}
}

// capturePreview encodes the frame as JPEG while someone is watching.
func (t *Tracker) capturePreview(frame *gocv.Mat, now time.Time) {
	t.previewMu.Lock()
	wanted := !t.previewWant.IsZero() && now.Sub(t.previewWant) < previewWindow
	t.previewMu.Unlock()
	if !wanted {
		return
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		logger.Debugf("encode preview: %v", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	t.previewMu.Lock()
	t.preview = data
	t.previewMu.Unlock()
}
