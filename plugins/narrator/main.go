// Package main is a feedback plugin that reads selection and game-over
// events aloud through the operating system's speech command.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request mirrors the request written by the plugin executor.
type Request struct {
	Event     string    `json:"event"`
	Selection *struct {
		Name    string `json:"name"`
		Correct bool   `json:"correct"`
	} `json:"selection,omitempty"`
	GameOver *struct {
		Score int `json:"score"`
		Total int `json:"total"`
	} `json:"game_over,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is written back to the executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type config struct {
	Voice  string `json:"voice"`
	DryRun bool   `json:"dry_run"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	var cfg config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("bad config: %v", err)})
			return
		}
	}

	text, err := phrase(&req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	if !cfg.DryRun {
		if err := speak(text, cfg.Voice); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("speak: %v", err)})
			return
		}
	}

	data, _ := json.Marshal(map[string]string{"spoken": text})
	writeResponse(Response{Success: true, Data: data})
}

func phrase(req *Request) (string, error) {
	switch req.Event {
	case "selection":
		if req.Selection == nil {
			return "", fmt.Errorf("selection event without selection")
		}
		if req.Selection.Correct {
			return fmt.Sprintf("Correct! That is a %s", req.Selection.Name), nil
		}
		return fmt.Sprintf("Oops! That is a %s", req.Selection.Name), nil
	case "game_over":
		if req.GameOver == nil {
			return "", fmt.Errorf("game_over event without score")
		}
		return fmt.Sprintf("Well done! You scored %d out of %d", req.GameOver.Score, req.GameOver.Total), nil
	default:
		return "", fmt.Errorf("unknown event: %s", req.Event)
	}
}

// speak runs the platform speech command.
func speak(text, voice string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		args := []string{text}
		if voice != "" {
			args = []string{"-v", voice, text}
		}
		cmd = exec.Command("say", args...)
	case "windows":
		script := fmt.Sprintf(`Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak(%q)`, text)
		cmd = exec.Command("powershell", "-NoProfile", "-Command", script)
	default:
		args := []string{text}
		if voice != "" {
			args = []string{"-v", voice, text}
		}
		cmd = exec.Command("espeak", args...)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
