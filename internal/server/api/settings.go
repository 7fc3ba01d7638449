package api

import (
	"net/http"

	"github.com/ayusman/akshara/internal/config"
	"github.com/ayusman/akshara/internal/store"
)

// SettingsHandler serves /api/settings. GET returns the active tuning as
// key/value strings; PUT applies a partial update live and persists it.
type SettingsHandler struct {
	store   *store.Store
	tracker Tracker
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(s *store.Store, t Tracker) *SettingsHandler {
	return &SettingsHandler{store: s, tracker: t}
}

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
	Keys     []string          `json:"keys"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.respond(w, h.tracker.Tuning())
	case http.MethodPut:
		h.update(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *SettingsHandler) respond(w http.ResponseWriter, t config.Tuning) {
	writeJSON(w, http.StatusOK, settingsResponse{
		Settings: t.Values(),
		Keys:     config.TuningKeys,
	})
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decode(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "No settings given")
		return
	}

	next, err := h.tracker.Tuning().Apply(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.tracker.SetTuning(next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Settings().SetAll(values); err != nil {
		logger.Errorf("persist settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Settings applied but not saved")
		return
	}
	h.respond(w, next)
}
