package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/kataras/golog"

	"github.com/ayusman/akshara/internal/backend"
	"github.com/ayusman/akshara/internal/capture"
	"github.com/ayusman/akshara/internal/config"
	"github.com/ayusman/akshara/internal/detector"
	"github.com/ayusman/akshara/internal/game"
	"github.com/ayusman/akshara/internal/plugin"
	"github.com/ayusman/akshara/internal/server"
	"github.com/ayusman/akshara/internal/store"
	"github.com/ayusman/akshara/internal/tracker"
	"github.com/ayusman/akshara/internal/tray"
)

var logger = golog.Child("[main]")

func main() {
	if err := run(); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	golog.SetLevel(cfg.LogLevel)
	logger.Infof("Akshara AR Hunt tracker")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tuning := loadTuning(cfg.Tuning, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(backend.Config{BaseURL: cfg.BackendURL, ModuleID: cfg.ModuleID})
	levels := loadCurriculum(ctx, client, st, cfg.LevelsPerGame)

	reporter := backend.NewReporter(client, 64, 5*time.Second)
	reporter.OnDeliver(func(p backend.Progress, err error) {
		if err != nil || p.AttemptID == "" {
			return
		}
		if err := st.Attempts().MarkReported(p.AttemptID); err != nil {
			logger.Warnf("mark attempt %s reported: %v", p.AttemptID, err)
		}
	})

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		logger.Warnf("plugin discovery: %v", err)
	}
	hooks := plugin.NewDispatcher(plugins, plugin.NewExecutor(0), 16)

	trk, err := tracker.New(tracker.Config{
		Camera:         capture.NewCamera(cfg.CameraID),
		Detector:       newDetector(),
		Levels:         levels,
		Attempts:       st.Attempts(),
		Reporter:       reporter,
		Hooks:          hooks,
		RenderFPS:      cfg.RenderFPS,
		MotionGate:     cfg.MotionGate,
		MaxReuseFrames: cfg.MaxReuseFrames,
		InitAttempts:   cfg.InitAttempts,
		InitBackoff:    cfg.InitBackoff,
		InitTimeout:    cfg.InitTimeout,
		UserID:         cfg.UserID,
		ModuleID:       cfg.ModuleID,
		Tuning:         tuning,
	})
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		logger.Infof("serving static files from %s", webDir)
	}
	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Tracker:   trk,
		Reporter:  reporter,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// Failure is kept in the snapshot; the UI stays up and says so.
		trk.Start(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		err := srv.Run(ctx, cfg.Addr)
		if err != nil {
			stop()
		}
		serveErr <- err
	}()

	url := "http://" + cfg.Addr
	if cfg.Tray {
		runTray(ctx, stop, trk, url)
	} else {
		<-ctx.Done()
	}
	stop()
	logger.Infof("shutting down")

	wg.Wait()
	trk.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hooks.Close(shutdownCtx); err != nil {
		logger.Warnf("plugin dispatcher: %v", err)
	}
	if err := reporter.Close(shutdownCtx); err != nil {
		logger.Warnf("progress reporter: %v", err)
	}
	rs := reporter.Stats()
	logger.Infof("progress delivered=%d failed=%d dropped=%d", rs.Sent, rs.Failed, rs.Dropped)

	if err := <-serveErr; err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// runTray blocks on the tray until Quit is chosen or ctx ends.
func runTray(ctx context.Context, quit context.CancelFunc, trk *tracker.Tracker, url string) {
	tr := tray.New()
	tr.OnToggle(trk.SetEnabled)
	tr.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			logger.Warnf("open browser: %v", err)
		}
	})
	tr.OnRestart(func() {
		if err := trk.Restart(nil); err != nil {
			logger.Warnf("restart: %v", err)
		}
		tr.SetScore(0, trk.Snapshot().Stats.Total)
	})
	tr.OnQuit(quit)

	trk.OnSelection(func(sel tracker.Selection) {
		tr.SetLastSelection(sel.Name, sel.Correct)
		stats := trk.Snapshot().Stats
		tr.SetScore(stats.Correct, stats.Total)
	})
	tr.SetScore(0, trk.Snapshot().Stats.Total)

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()
	tr.Run()
}

// loadTuning applies thresholds saved through the settings API on top of
// the environment. Unusable saved values are ignored.
func loadTuning(base config.Tuning, st *store.Store) config.Tuning {
	saved, err := st.Settings().All()
	if err != nil {
		logger.Warnf("load settings: %v", err)
		return base
	}
	if len(saved) == 0 {
		return base
	}
	tuning, err := base.Apply(saved)
	if err != nil {
		logger.Warnf("ignoring saved settings: %v", err)
		return base
	}
	logger.Infof("applied %d saved settings", len(saved))
	return tuning
}

// loadCurriculum prefers fresh backend levels, then the local cache, then
// the built-in set.
func loadCurriculum(ctx context.Context, client *backend.Client, st *store.Store, n int) []game.Level {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	levels, err := client.FetchLevels(fetchCtx, n)
	if err == nil && len(levels) > 0 {
		if err := st.Levels().ReplaceSource(store.SourceBackend, levels); err != nil {
			logger.Warnf("cache levels: %v", err)
		}
		logger.Infof("loaded %d levels from backend", len(levels))
		return levels
	}
	if err != nil {
		logger.Warnf("fetch levels: %v", err)
	}

	recs, err := st.Levels().List()
	if err != nil {
		logger.Warnf("load cached levels: %v", err)
	}
	if len(recs) > 0 {
		logger.Infof("loaded %d cached levels", len(recs))
		return store.Playable(recs)
	}

	logger.Infof("using built-in levels")
	return game.BuiltinLevels()
}

// newDetector starts the MediaPipe sidecar, or falls back to a detector
// that never sees a hand so the UI can still be used.
func newDetector() detector.Detector {
	d, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	if err != nil {
		logger.Warnf("hand detector unavailable, tracking disabled: %v", err)
		return detector.NewMockDetector()
	}
	return d
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
