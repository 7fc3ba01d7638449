package server

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type frameSource struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameSource) next() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	frame := f.frames[0]
	if len(f.frames) > 1 {
		f.frames = f.frames[1:]
		return frame
	}
	// The last frame repeats as fresh copies so the stream keeps flowing.
	return append([]byte(nil), frame...)
}

func TestStreamHandler_ServesFrames(t *testing.T) {
	src := &frameSource{frames: [][]byte{nil, []byte("jpeg-one"), []byte("jpeg-two")}}
	h := NewStreamHandler(src.next)
	h.interval = time.Millisecond
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}

	mr := multipart.NewReader(resp.Body, params["boundary"])
	for _, want := range []string{"jpeg-one", "jpeg-two"} {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part Content-Type = %q", ct)
		}
		got, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("frame = %q, want %q", got, want)
		}
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(func() []byte { return nil })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestSameFrame(t *testing.T) {
	a := []byte("frame")
	b := []byte("frame")
	if !sameFrame(a, a) {
		t.Error("a slice should match itself")
	}
	if sameFrame(a, b) {
		t.Error("equal bytes in different arrays are different frames")
	}
	if sameFrame(nil, a) || sameFrame(a, nil) {
		t.Error("nil never matches")
	}
}
