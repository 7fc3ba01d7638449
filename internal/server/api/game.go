package api

import (
	"net/http"

	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/store"
)

// GameHandler serves /api/game (current snapshot) and /api/game/restart.
// A restart with ?reload=1 reloads the curriculum from the level store.
type GameHandler struct {
	store   *store.Store
	tracker Tracker
}

// NewGameHandler creates a GameHandler. The store may be nil, in which case
// reloads are refused.
func NewGameHandler(s *store.Store, t Tracker) *GameHandler {
	return &GameHandler{store: s, tracker: t}
}

func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch subpath(r, "/api/game") {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, h.tracker.Snapshot())
	case "restart":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.restart(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *GameHandler) restart(w http.ResponseWriter, r *http.Request) {
	var levels []game.Level
	if reload := r.URL.Query().Get("reload"); reload == "1" || reload == "true" {
		if h.store == nil {
			writeError(w, http.StatusServiceUnavailable, "No level store")
			return
		}
		recs, err := h.store.Levels().List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load levels")
			return
		}
		if len(recs) == 0 {
			writeError(w, http.StatusConflict, "No stored levels")
			return
		}
		levels = store.Playable(recs)
	}

	if err := h.tracker.Restart(levels); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}
