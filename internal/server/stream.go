package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval paces the MJPEG preview at about 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// StreamHandler serves the tracker's preview frames as MJPEG.
type StreamHandler struct {
	source   func() []byte
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler reading JPEG frames from source.
// A nil frame means none is ready yet.
func NewStreamHandler(source func() []byte) *StreamHandler {
	return &StreamHandler{source: source, interval: DefaultStreamInterval}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		if frame := h.source(); len(frame) > 0 && !sameFrame(frame, last) {
			if err := writeFrame(w, frame); err != nil {
				logger.Debugf("stream client gone: %v", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			last = frame
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeFrame(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}

// sameFrame reports whether a and b share a backing array. The tracker
// replaces its preview slice for every new frame.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
