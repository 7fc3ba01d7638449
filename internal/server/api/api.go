// Package api provides the REST handlers behind the browser UI: the level
// cache, attempt history, tuning settings, calibration and game control.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/akshara/internal/config"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/tracker"
	"github.com/kataras/golog"
)

var logger = golog.Child("[api]")

// Tracker is the part of the running tracker the handlers need.
// *tracker.Tracker implements it.
type Tracker interface {
	Snapshot() tracker.Snapshot
	Tuning() config.Tuning
	SetTuning(t config.Tuning) error
	Restart(levels []game.Level) error
	LastHand() (detector.HandLandmarks, bool)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Warnf("encode response: %v", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// subpath strips prefix and surrounding slashes from the request path.
func subpath(r *http.Request, prefix string) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
