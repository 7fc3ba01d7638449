package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/store"
)

// LevelHandler serves /api/levels and /api/levels/{id}.
type LevelHandler struct {
	store *store.Store
}

// NewLevelHandler creates a LevelHandler over the given store.
func NewLevelHandler(s *store.Store) *LevelHandler {
	return &LevelHandler{store: s}
}

type levelResponse struct {
	game.Level
	Source    store.Source `json:"source"`
	Position  int          `json:"position"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}

type listLevelsResponse struct {
	Levels []levelResponse `json:"levels"`
}

func toLevelResponse(rec *store.LevelRecord) levelResponse {
	return levelResponse{
		Level:     rec.Level,
		Source:    rec.Source,
		Position:  rec.Position,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *LevelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := subpath(r, "/api/levels")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		methodNotAllowed(w)
	}
}

// list handles GET /api/levels[?source=custom].
func (h *LevelHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		recs []*store.LevelRecord
		err  error
	)
	if src := r.URL.Query().Get("source"); src != "" {
		recs, err = h.store.Levels().ListBySource(store.Source(src))
	} else {
		recs, err = h.store.Levels().List()
	}
	if err != nil {
		logger.Errorf("list levels: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list levels")
		return
	}

	resp := listLevelsResponse{Levels: make([]levelResponse, 0, len(recs))}
	for _, rec := range recs {
		resp.Levels = append(resp.Levels, toLevelResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LevelHandler) get(w http.ResponseWriter, id string) {
	rec, err := h.store.Levels().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Level not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get level")
		return
	}
	writeJSON(w, http.StatusOK, toLevelResponse(rec))
}

// create handles POST /api/levels. Levels created here are custom levels;
// an id is generated when none is given.
func (h *LevelHandler) create(w http.ResponseWriter, r *http.Request) {
	var l game.Level
	if err := decode(r, &l); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.AssignSlots()
	if err := l.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.Levels().Get(l.ID); err == nil {
		writeError(w, http.StatusConflict, "Level already exists")
		return
	}

	if err := h.store.Levels().Create(&l, store.SourceCustom); err != nil {
		logger.Errorf("create level %s: %v", l.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create level")
		return
	}
	h.get(w, l.ID)
	logger.Infof("custom level %s created", l.ID)
}

func (h *LevelHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var l game.Level
	if err := decode(r, &l); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if l.ID != "" && l.ID != id {
		writeError(w, http.StatusBadRequest, "Level id does not match path")
		return
	}
	l.ID = id
	l.AssignSlots()
	if err := l.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Levels().Update(&l); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Level not found")
			return
		}
		logger.Errorf("update level %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update level")
		return
	}
	h.get(w, id)
}

func (h *LevelHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Levels().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Level not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete level")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
