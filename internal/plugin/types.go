// Package plugin runs external feedback hooks (narration, sound effects)
// when the player selects an option or finishes a game.
package plugin

import "encoding/json"

// Event names a hook a plugin can subscribe to.
type Event string

const (
	EventSelection Event = "selection"
	EventGameOver  Event = "game_over"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []Event         `json:"events"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the plugin subscribed to e.
func (m Manifest) Handles(e Event) bool {
	for _, ev := range m.Events {
		if ev == e {
			return true
		}
	}
	return false
}

// Selection describes a judged selection.
type Selection struct {
	TargetID string `json:"target_id"`
	Name     string `json:"name"`
	Letter   string `json:"letter,omitempty"`
	Correct  bool   `json:"correct"`
	Level    int    `json:"level"`
	Prompt   string `json:"prompt,omitempty"`
}

// GameOver summarizes a finished game.
type GameOver struct {
	SessionID string `json:"session_id"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	Wrong     int    `json:"wrong"`
}

// Request is written to a plugin's stdin.
type Request struct {
	Event     Event           `json:"event"`
	Selection *Selection      `json:"selection,omitempty"`
	GameOver  *GameOver       `json:"game_over,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
