package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/akshara/internal/store"
)

// AttemptHandler serves /api/attempts and /api/attempts/stats.
type AttemptHandler struct {
	store *store.Store
}

// NewAttemptHandler creates an AttemptHandler over the given store.
func NewAttemptHandler(s *store.Store) *AttemptHandler {
	return &AttemptHandler{store: s}
}

type listAttemptsResponse struct {
	Attempts []store.Attempt `json:"attempts"`
}

func (h *AttemptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	switch subpath(r, "/api/attempts") {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/attempts[?session=id][&limit=n].
func (h *AttemptHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		attempts []store.Attempt
		err      error
	)
	if session := q.Get("session"); session != "" {
		attempts, err = h.store.Attempts().ListBySession(session)
	} else {
		limit := 0
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
		}
		attempts, err = h.store.Attempts().ListRecent(limit)
	}
	if err != nil {
		logger.Errorf("list attempts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list attempts")
		return
	}

	if attempts == nil {
		attempts = []store.Attempt{}
	}
	writeJSON(w, http.StatusOK, listAttemptsResponse{Attempts: attempts})
}

// stats handles GET /api/attempts/stats[?session=id].
func (h *AttemptHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Attempts().Stats(r.URL.Query().Get("session"))
	if err != nil {
		logger.Errorf("attempt stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
