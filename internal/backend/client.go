// Package backend talks to the external Akshara REST service: curriculum
// fetches and progress reports.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	jsoniter "github.com/json-iterator/go"
	"github.com/kataras/golog"

	"github.com/ayusman/akshara/internal/game"
)

var logger = golog.Child("[backend]")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrStatus is returned when the backend answers with a non-2xx status.
var ErrStatus = errors.New("unexpected backend status")

// Progress is one selection result as the backend stores it.
type Progress struct {
	UserID         string    `json:"user_id"`
	ModuleID       string    `json:"module_id"`
	Level          int       `json:"level"`
	Epoch          int       `json:"epoch"`
	SelectedID     string    `json:"selected_id"`
	IsCorrect      bool      `json:"is_correct"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`

	// AttemptID links the report to the locally stored attempt.
	AttemptID string `json:"-"`
}

// Score is the end-of-game summary.
type Score struct {
	ModuleID       string `json:"module_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
}

// Config configures the client.
type Config struct {
	BaseURL  string
	ModuleID string
	Timeout  time.Duration
}

// Client is a thin wrapper around the backend's REST endpoints.
type Client struct {
	http     *req.Client
	moduleID string
}

// NewClient creates a client for the backend at config.BaseURL.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.ModuleID == "" {
		config.ModuleID = "ar-hunt"
	}
	c := req.C().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetUserAgent("akshara-tracker").
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	return &Client{http: c, moduleID: config.ModuleID}
}

// ModuleID returns the module the client reports under.
func (c *Client) ModuleID() string {
	return c.moduleID
}

type taskOption struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsCorrect bool   `json:"is_correct"`
	ImageURL  string `json:"image_url"`
}

type taskResponse struct {
	TaskID     string       `json:"task_id"`
	Level      int          `json:"level"`
	Epoch      int          `json:"epoch"`
	Prompt     string       `json:"prompt"`
	TargetWord string       `json:"target_word"`
	AudioURL   string       `json:"audio_url"`
	Options    []taskOption `json:"options"`
}

func (t *taskResponse) toLevel() game.Level {
	l := game.Level{
		ID:       t.TaskID,
		TaskID:   t.TaskID,
		Level:    t.Level,
		Epoch:    t.Epoch,
		Target:   t.TargetWord,
		Prompt:   t.Prompt,
		AudioURL: t.AudioURL,
	}
	for _, o := range t.Options {
		correct := o.IsCorrect
		l.Options = append(l.Options, game.Option{
			ID:       o.ID,
			Name:     o.Name,
			ImageURL: o.ImageURL,
			Correct:  &correct,
		})
	}
	l.AssignSlots()
	return l
}

// FetchTask returns one randomly drawn level with its target and
// distractors.
func (c *Client) FetchTask(ctx context.Context) (game.Level, error) {
	var task taskResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&task).
		Get("/api/modules/ar-hunt")
	if err != nil {
		return game.Level{}, fmt.Errorf("fetch task: %w", err)
	}
	if !resp.IsSuccess() {
		return game.Level{}, fmt.Errorf("fetch task: %w: %d", ErrStatus, resp.StatusCode)
	}

	level := task.toLevel()
	if err := level.Validate(); err != nil {
		return game.Level{}, fmt.Errorf("fetch task: %w", err)
	}
	return level, nil
}

// FetchLevels draws up to n distinct levels. The backend picks tasks at
// random, so a bounded number of draws is made and duplicates are skipped.
func (c *Client) FetchLevels(ctx context.Context, n int) ([]game.Level, error) {
	seen := make(map[string]bool, n)
	var levels []game.Level
	for draws := 0; len(levels) < n && draws < n*3; draws++ {
		level, err := c.FetchTask(ctx)
		if err != nil {
			if len(levels) > 0 {
				logger.Warnf("stopping after %d levels: %v", len(levels), err)
				break
			}
			return nil, err
		}
		if seen[level.ID] {
			continue
		}
		seen[level.ID] = true
		levels = append(levels, level)
	}
	return levels, nil
}

// ReportProgress posts a selection result.
func (c *Client) ReportProgress(ctx context.Context, p Progress) error {
	if p.ModuleID == "" {
		p.ModuleID = c.moduleID
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&p).
		Post("/api/report-progress")
	if err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("report progress: %w: %d", ErrStatus, resp.StatusCode)
	}
	return nil
}

// ReportScore posts the end-of-game score.
func (c *Client) ReportScore(ctx context.Context, s Score) error {
	if s.ModuleID == "" {
		s.ModuleID = c.moduleID
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&s).
		Post("/modules/score")
	if err != nil {
		return fmt.Errorf("report score: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("report score: %w: %d", ErrStatus, resp.StatusCode)
	}
	return nil
}
