package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/akshara/internal/config"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/gesture"
	"github.com/ayusman/akshara/internal/store"
)

// CalibrationHandler records open-hand and fist samples from the live
// tracker and derives a personal fist ratio from them.
//
//	GET    /api/calibration             sample counts and the active ratio
//	POST   /api/calibration/samples     {"pose":"fist"} captures the current hand
//	POST   /api/calibration/compute     computes, applies and saves the ratio
//	DELETE /api/calibration             removes every sample
type CalibrationHandler struct {
	store   *store.Store
	tracker Tracker
}

// NewCalibrationHandler creates a CalibrationHandler.
func NewCalibrationHandler(s *store.Store, t Tracker) *CalibrationHandler {
	return &CalibrationHandler{store: s, tracker: t}
}

type calibrationStatus struct {
	Open      int     `json:"open"`
	Fist      int     `json:"fist"`
	FistRatio float64 `json:"fist_ratio"`
}

type captureRequest struct {
	Pose gesture.Pose `json:"pose"`
}

type captureResponse struct {
	Pose  gesture.Pose `json:"pose"`
	Ratio float64      `json:"ratio"`
	Count int          `json:"count"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch sub := subpath(r, "/api/calibration"); {
	case sub == "" && r.Method == http.MethodGet:
		h.status(w)
	case sub == "" && r.Method == http.MethodDelete:
		h.clear(w)
	case sub == "samples" && r.Method == http.MethodPost:
		h.capture(w, r)
	case sub == "compute" && r.Method == http.MethodPost:
		h.compute(w)
	case sub == "" || sub == "samples" || sub == "compute":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *CalibrationHandler) counts() (map[gesture.Pose]int, error) {
	return h.store.Samples().Count()
}

func (h *CalibrationHandler) status(w http.ResponseWriter) {
	counts, err := h.counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}
	writeJSON(w, http.StatusOK, calibrationStatus{
		Open:      counts[gesture.PoseOpen],
		Fist:      counts[gesture.PoseFist],
		FistRatio: h.tracker.Tuning().FistRatio,
	})
}

func (h *CalibrationHandler) capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Pose != gesture.PoseOpen && req.Pose != gesture.PoseFist {
		writeError(w, http.StatusBadRequest, "Pose must be open or fist")
		return
	}

	hand, ok := h.tracker.LastHand()
	if !ok {
		writeError(w, http.StatusConflict, "No hand in view")
		return
	}
	ratio, ok := gesture.Ratio(&hand)
	if !ok {
		writeError(w, http.StatusConflict, "Hand too small to measure")
		return
	}

	if err := h.store.Samples().Create(req.Pose, []detector.HandLandmarks{hand}); err != nil {
		logger.Errorf("store sample: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store sample")
		return
	}
	counts, err := h.counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}
	writeJSON(w, http.StatusCreated, captureResponse{Pose: req.Pose, Ratio: ratio, Count: counts[req.Pose]})
}

func (h *CalibrationHandler) compute(w http.ResponseWriter) {
	open, err := h.store.Samples().ListByPose(gesture.PoseOpen)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	fist, err := h.store.Samples().ListByPose(gesture.PoseFist)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}

	cal, err := gesture.Calibrate(open, fist)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, gesture.ErrOverlap) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	next := h.tracker.Tuning()
	next.FistRatio = cal.Ratio
	values := map[string]string{config.KeyFistRatio: next.Values()[config.KeyFistRatio]}

	if err := h.tracker.SetTuning(next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Settings().SetAll(values); err != nil {
		writeError(w, http.StatusInternalServerError, "Ratio applied but not saved")
		return
	}
	logger.Infof("calibrated fist ratio %.3f from %d open / %d fist samples", cal.Ratio, cal.OpenSamples, cal.FistSamples)
	writeJSON(w, http.StatusOK, cal)
}

func (h *CalibrationHandler) clear(w http.ResponseWriter) {
	if err := h.store.Samples().Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
