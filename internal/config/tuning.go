package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ayusman/akshara/internal/cursor"
	"github.com/ayusman/akshara/internal/gesture"
	"github.com/ayusman/akshara/internal/interaction"
)

// Tuning holds the gesture thresholds. Every field can be set from the
// environment, from the settings table, or live over the API.
type Tuning struct {
	FistRatio       float64            `json:"fist_ratio"`
	HitRadius       float64            `json:"hit_radius"`
	Dwell           time.Duration      `json:"dwell"`
	Smoothing       float64            `json:"smoothing"`
	Margin          float64            `json:"margin"`
	Mirror          bool               `json:"mirror"`
	Policy          interaction.Policy `json:"policy"`
	FeedbackCorrect time.Duration      `json:"feedback_correct"`
	FeedbackWrong   time.Duration      `json:"feedback_wrong"`
}

// Setting keys. The environment variable for a key is Prefix + upper(key).
const (
	KeyFistRatio       = "fist_ratio"
	KeyHitRadius       = "hit_radius"
	KeyDwellMs         = "dwell_ms"
	KeySmoothing       = "smoothing"
	KeyMargin          = "margin"
	KeyMirror          = "mirror"
	KeyPolicy          = "policy"
	KeyFeedbackCorrect = "feedback_correct_ms"
	KeyFeedbackWrong   = "feedback_wrong_ms"
)

// TuningKeys lists every tuning key.
var TuningKeys = []string{
	KeyFistRatio, KeyHitRadius, KeyDwellMs, KeySmoothing, KeyMargin,
	KeyMirror, KeyPolicy, KeyFeedbackCorrect, KeyFeedbackWrong,
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	mc := interaction.DefaultConfig()
	m := cursor.DefaultMapper()
	return Tuning{
		FistRatio:       gesture.DefaultFistRatio,
		HitRadius:       mc.HitRadius,
		Dwell:           mc.DwellThreshold,
		Smoothing:       cursor.DefaultAlpha,
		Margin:          m.Margin,
		Mirror:          m.Mirror,
		Policy:          mc.Policy,
		FeedbackCorrect: mc.FeedbackCorrect,
		FeedbackWrong:   mc.FeedbackWrong,
	}
}

// Validate checks every threshold.
func (t Tuning) Validate() error {
	if t.FistRatio <= 0 {
		return fmt.Errorf("fist ratio must be positive, got %v", t.FistRatio)
	}
	if err := cursor.ValidateAlpha(t.Smoothing); err != nil {
		return err
	}
	if err := t.Mapper().Validate(); err != nil {
		return err
	}
	return t.Machine().Validate()
}

// Machine returns the selection machine configuration.
func (t Tuning) Machine() interaction.Config {
	return interaction.Config{
		Policy:          t.Policy,
		HitRadius:       t.HitRadius,
		DwellThreshold:  t.Dwell,
		FeedbackCorrect: t.FeedbackCorrect,
		FeedbackWrong:   t.FeedbackWrong,
	}
}

// Mapper returns the coordinate mapper.
func (t Tuning) Mapper() cursor.Mapper {
	return cursor.Mapper{Mirror: t.Mirror, Margin: t.Margin}
}

// Values encodes the tuning as setting key/value pairs.
func (t Tuning) Values() map[string]string {
	return map[string]string{
		KeyFistRatio:       formatFloat(t.FistRatio),
		KeyHitRadius:       formatFloat(t.HitRadius),
		KeyDwellMs:         strconv.FormatInt(t.Dwell.Milliseconds(), 10),
		KeySmoothing:       formatFloat(t.Smoothing),
		KeyMargin:          formatFloat(t.Margin),
		KeyMirror:          strconv.FormatBool(t.Mirror),
		KeyPolicy:          string(t.Policy),
		KeyFeedbackCorrect: strconv.FormatInt(t.FeedbackCorrect.Milliseconds(), 10),
		KeyFeedbackWrong:   strconv.FormatInt(t.FeedbackWrong.Milliseconds(), 10),
	}
}

// Apply returns a copy of t with the given setting values applied and
// validated. Unknown keys are rejected.
func (t Tuning) Apply(values map[string]string) (Tuning, error) {
	for key, v := range values {
		var err error
		switch key {
		case KeyFistRatio:
			t.FistRatio, err = strconv.ParseFloat(v, 64)
		case KeyHitRadius:
			t.HitRadius, err = strconv.ParseFloat(v, 64)
		case KeyDwellMs:
			t.Dwell, err = parseMillis(v)
		case KeySmoothing:
			t.Smoothing, err = strconv.ParseFloat(v, 64)
		case KeyMargin:
			t.Margin, err = strconv.ParseFloat(v, 64)
		case KeyMirror:
			t.Mirror, err = strconv.ParseBool(v)
		case KeyPolicy:
			t.Policy, err = interaction.ParsePolicy(v)
		case KeyFeedbackCorrect:
			t.FeedbackCorrect, err = parseMillis(v)
		case KeyFeedbackWrong:
			t.FeedbackWrong, err = parseMillis(v)
		default:
			return t, fmt.Errorf("unknown setting %q", key)
		}
		if err != nil {
			return t, fmt.Errorf("setting %s=%q: %w", key, v, err)
		}
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func parseMillis(v string) (time.Duration, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
