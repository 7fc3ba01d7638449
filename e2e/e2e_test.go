package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/akshara/internal/backend"
	"github.com/ayusman/akshara/internal/capture"
	"github.com/ayusman/akshara/internal/cursor"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/plugin"
	"github.com/ayusman/akshara/internal/server"
	"github.com/ayusman/akshara/internal/store"
	"github.com/ayusman/akshara/internal/tracker"
)

// fakeBackend records what the tracker reports.
type fakeBackend struct {
	mu       sync.Mutex
	progress []backend.Progress
	scores   []backend.Score
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.URL.Path {
	case "/api/report-progress":
		var p backend.Progress
		json.NewDecoder(r.Body).Decode(&p)
		b.progress = append(b.progress, p)
	case "/modules/score":
		var s backend.Score
		json.NewDecoder(r.Body).Decode(&s)
		b.scores = append(b.scores, s)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"status":"ok"}`)
}

func (b *fakeBackend) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.progress), len(b.scores)
}

// handOver places a hand so the mirrored, margin-mapped index tip lands on p.
func handOver(p cursor.Point, fist bool) detector.HandLandmarks {
	const m = 0.2
	span := 1 - 2*m
	x := 1 - (m + span*p.X/100)
	y := m + span*p.Y/100
	if fist {
		return detector.FistAt(x, y)
	}
	return detector.PointingLandmarks(x, y)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestE2E_CompleteGame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	fb := &fakeBackend{}
	backendSrv := httptest.NewServer(fb)
	defer backendSrv.Close()

	client := backend.NewClient(backend.Config{BaseURL: backendSrv.URL})
	reporter := backend.NewReporter(client, 8, time.Second)
	reporter.OnDeliver(func(p backend.Progress, err error) {
		if err == nil {
			st.Attempts().MarkReported(p.AttemptID)
		}
	})
	defer reporter.Close(context.Background())

	plugins := plugin.NewManager(filepath.Join(tmpDir, "plugins"))
	if err := plugins.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	hooks := plugin.NewDispatcher(plugins, plugin.NewExecutor(time.Second), 4)
	defer hooks.Close(context.Background())

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	det := detector.NewMockDetector()

	trk, err := tracker.New(tracker.Config{
		Camera:    capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector:  det,
		Levels:    game.BuiltinLevels(),
		Attempts:  st.Attempts(),
		Reporter:  reporter,
		Hooks:     hooks,
		RenderFPS: 60,
		UserID:    "student_001",
		ModuleID:  "ar-hunt",
	})
	if err != nil {
		t.Fatalf("tracker.New() error = %v", err)
	}
	defer trk.Stop()

	srv := server.New(server.Config{Store: st, Tracker: trk, Reporter: reporter, CursorInterval: 20 * time.Millisecond})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()
	httpc := ts.Client()

	do := func(t *testing.T, method, path, body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		resp, err := httpc.Do(req)
		if err != nil {
			t.Fatalf("%s %s error = %v", method, path, err)
		}
		return resp
	}

	t.Run("CreateLevel", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/api/levels", `{"id":"kite","level":1,"target":"K","prompt":"Find K",
			"options":[{"id":"kite","name":"Kite","letter":"K"},{"id":"lamp","name":"Lamp","letter":"L"}]}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("TuneForSpeed", func(t *testing.T) {
		resp := do(t, http.MethodPut, "/api/settings", `{"dwell_ms":"300","feedback_correct_ms":"200","smoothing":"0.5"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("PlayStoredLevels", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/api/game/restart?reload=1", "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if total := trk.Snapshot().Stats.Total; total != 1 {
			t.Fatalf("total levels = %d, want 1", total)
		}
	})

	if err := trk.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/cursor/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial cursor socket: %v", err)
	}
	defer conn.Close()

	t.Run("SelectByFist", func(t *testing.T) {
		det.SetHands([]detector.HandLandmarks{handOver(game.SlotTop.Position(), true)})

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("waiting for selection: %v", err)
			}
			var msg struct {
				Type string            `json:"type"`
				Data tracker.Selection `json:"data"`
			}
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != server.MessageSelection {
				continue
			}
			if msg.Data.TargetID != "kite" || !msg.Data.Correct {
				t.Errorf("selection = %+v", msg.Data)
			}
			break
		}
		det.SetHands(nil)
	})

	t.Run("ProgressDelivered", func(t *testing.T) {
		waitFor(t, "progress report", func() bool { p, _ := fb.counts(); return p == 1 })
		fb.mu.Lock()
		p := fb.progress[0]
		fb.mu.Unlock()
		if p.SelectedID != "kite" || !p.IsCorrect || p.UserID != "student_001" {
			t.Errorf("progress = %+v", p)
		}

		waitFor(t, "attempt marked reported", func() bool {
			attempts, err := st.Attempts().ListRecent(10)
			return err == nil && len(attempts) == 1 && attempts[0].Reported
		})
	})

	t.Run("GameOver", func(t *testing.T) {
		waitFor(t, "final score", func() bool { _, s := fb.counts(); return s == 1 })
		fb.mu.Lock()
		score := fb.scores[0]
		fb.mu.Unlock()
		if score.Score != 1 || score.TotalQuestions != 1 {
			t.Errorf("score = %+v", score)
		}

		resp := do(t, http.MethodGet, "/api/game", "")
		defer resp.Body.Close()
		var snap tracker.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if !snap.Stats.GameOver || snap.Stats.Correct != 1 {
			t.Errorf("stats = %+v", snap.Stats)
		}
	})

	t.Run("HealthReportsDelivery", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/api/health", "")
		defer resp.Body.Close()
		var health struct {
			Status   string                 `json:"status"`
			Delivery *backend.ReporterStats `json:"delivery"`
		}
		json.NewDecoder(resp.Body).Decode(&health)
		if health.Status != "ok" || health.Delivery == nil || health.Delivery.Sent < 1 {
			t.Errorf("health = %+v", health)
		}
	})
}
