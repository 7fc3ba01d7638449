package api

import (
	"net/http"
	"testing"

	"github.com/ayusman/akshara/internal/config"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/gesture"
)

func captureSample(t *testing.T, h http.Handler, ft *fakeTracker, pose gesture.Pose, hand detector.HandLandmarks) captureResponse {
	t.Helper()
	ft.hand = &hand
	rec := do(t, h, http.MethodPost, "/api/calibration/samples", captureRequest{Pose: pose})
	if rec.Code != http.StatusCreated {
		t.Fatalf("capture %s status = %d: %s", pose, rec.Code, rec.Body.String())
	}
	var resp captureResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestCalibrationHandler_Flow(t *testing.T) {
	s := newTestStore(t)
	ft := newFakeTracker()
	h := NewCalibrationHandler(s, ft)

	captureSample(t, h, ft, gesture.PoseOpen, detector.OpenPalmLandmarks())
	captureSample(t, h, ft, gesture.PoseOpen, detector.PointingLandmarks(0.3, 0.4))
	resp := captureSample(t, h, ft, gesture.PoseFist, detector.FistLandmarks())
	if resp.Count != 1 {
		t.Errorf("fist count = %d, want 1", resp.Count)
	}
	if resp.Ratio >= gesture.DefaultFistRatio {
		t.Errorf("fist ratio %.3f should be below %.1f", resp.Ratio, gesture.DefaultFistRatio)
	}

	var status calibrationStatus
	decodeBody(t, do(t, h, http.MethodGet, "/api/calibration", nil), &status)
	if status.Open != 2 || status.Fist != 1 {
		t.Errorf("status = %+v", status)
	}

	rec := do(t, h, http.MethodPost, "/api/calibration/compute", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("compute status = %d: %s", rec.Code, rec.Body.String())
	}
	var cal gesture.Calibration
	decodeBody(t, rec, &cal)
	if cal.Ratio <= cal.MaxFist || cal.Ratio >= cal.MinOpen {
		t.Errorf("ratio %.3f should sit between %.3f and %.3f", cal.Ratio, cal.MaxFist, cal.MinOpen)
	}
	if ft.tuning.FistRatio != cal.Ratio {
		t.Errorf("tracker ratio = %v, want %v", ft.tuning.FistRatio, cal.Ratio)
	}
	saved, err := s.Settings().Get(config.KeyFistRatio)
	if err != nil {
		t.Fatalf("fist ratio not persisted: %v", err)
	}
	if saved != ft.tuning.Values()[config.KeyFistRatio] {
		t.Errorf("persisted ratio = %q", saved)
	}

	if rec := do(t, h, http.MethodDelete, "/api/calibration", nil); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d, want 204", rec.Code)
	}
	decodeBody(t, do(t, h, http.MethodGet, "/api/calibration", nil), &status)
	if status.Open != 0 || status.Fist != 0 {
		t.Errorf("after clear status = %+v", status)
	}
}

func TestCalibrationHandler_CaptureErrors(t *testing.T) {
	ft := newFakeTracker()
	h := NewCalibrationHandler(newTestStore(t), ft)

	if rec := do(t, h, http.MethodPost, "/api/calibration/samples", captureRequest{Pose: gesture.PoseFist}); rec.Code != http.StatusConflict {
		t.Errorf("no hand status = %d, want 409", rec.Code)
	}

	var degenerate detector.HandLandmarks
	ft.hand = &degenerate
	if rec := do(t, h, http.MethodPost, "/api/calibration/samples", captureRequest{Pose: gesture.PoseFist}); rec.Code != http.StatusConflict {
		t.Errorf("degenerate hand status = %d, want 409", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/calibration/samples", `{"pose":"wave"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad pose status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/calibration/other", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestCalibrationHandler_ComputeErrors(t *testing.T) {
	ft := newFakeTracker()
	h := NewCalibrationHandler(newTestStore(t), ft)

	if rec := do(t, h, http.MethodPost, "/api/calibration/compute", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("no samples status = %d, want 400", rec.Code)
	}

	// A fist recorded as open overlaps the real fist.
	captureSample(t, h, ft, gesture.PoseOpen, detector.FistLandmarks())
	captureSample(t, h, ft, gesture.PoseFist, detector.FistLandmarks())
	if rec := do(t, h, http.MethodPost, "/api/calibration/compute", nil); rec.Code != http.StatusConflict {
		t.Errorf("overlap status = %d, want 409", rec.Code)
	}
	if ft.tuning.FistRatio != gesture.DefaultFistRatio {
		t.Errorf("failed compute changed ratio to %v", ft.tuning.FistRatio)
	}
}
