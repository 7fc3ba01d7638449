// Package tray provides the system tray menu for the Akshara daemon.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle  func(enabled bool)
	onOpen    func()
	onRestart func()
	onQuit    func()
	enabled   bool
	last      string
	score     string
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLast   *systray.MenuItem
	menuScore  *systray.MenuItem
}

// New creates a new Tray instance with tracking enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
		last:    "Last: none",
		score:   "Score: 0 / 0",
	}
}

// OnToggle sets the callback run when tracking is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback run when "Open Akshara" is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnRestart sets the callback run when "Restart game" is clicked.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu, e.g. on SIGINT.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Akshara")
	systray.SetTooltip("Akshara AR Hunt")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume hand tracking")
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(t.last, "Last selection")
	t.menuLast.Disable()
	t.menuScore = systray.AddMenuItem(t.score, "Correct answers this game")
	t.menuScore.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Akshara...", "Open the game in a browser")
	menuRestart := systray.AddMenuItem("Restart game", "Start the curriculum again")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Akshara")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.call(t.onOpenFn())
			case <-menuRestart.ClickedCh:
				t.call(t.onRestartFn())
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

// handleToggle flips the enabled state and reports it.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) onOpenFn() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onOpen
}

func (t *Tray) onRestartFn() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onRestart
}

func (t *Tray) call(fn func()) {
	if fn != nil {
		fn()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	t.call(callback)
	systray.Quit()
}

// SetLastSelection shows the most recent selection in the menu.
func (t *Tray) SetLastSelection(name string, correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = selectionTitle(name, correct)
	if t.menuLast != nil {
		t.menuLast.SetTitle(t.last)
	}
}

// SetScore shows the running score.
func (t *Tray) SetScore(correct, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.score = fmt.Sprintf("Score: %d / %d", correct, total)
	if t.menuScore != nil {
		t.menuScore.SetTitle(t.score)
	}
}

func selectionTitle(name string, correct bool) string {
	switch {
	case name == "":
		return "Last: none"
	case correct:
		return "Last: " + name + " ✓"
	default:
		return "Last: " + name + " ✗"
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// LastSelection returns the menu text for the last selection.
func (t *Tray) LastSelection() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Score returns the menu text for the score.
func (t *Tray) Score() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.score
}
