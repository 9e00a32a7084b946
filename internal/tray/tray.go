// Package tray provides the system tray menu of the handplay player.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/playback"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onPlayPause func(play bool)
	onQuit      func()
	enabled     bool
	playing     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuPlayPause   *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray instance with gesture input enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when gesture input is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnPlayPause sets the callback called from the play/pause item. play is
// true when the user asked to start playback.
func (t *Tray) OnPlayPause(fn func(play bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPlayPause = fn
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

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("handplay")
	systray.SetTooltip("Hand gesture video player")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture input")
	t.menuPlayPause = systray.AddMenuItem(playPauseTitle(t.playing), "Play or pause the video")
	systray.AddSeparator()
	t.menuLastGesture = systray.AddMenuItem("Last: none", "Last accepted gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit handplay")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuPlayPause.ClickedCh:
				t.handlePlayPause()
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
		return "● Gestures enabled"
	}
	return "○ Gestures disabled"
}

func playPauseTitle(playing bool) string {
	if playing {
		return "Pause"
	}
	return "Play"
}

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

func (t *Tray) handlePlayPause() {
	t.mu.RLock()
	play := !t.playing
	callback := t.onPlayPause
	t.mu.RUnlock()

	if callback != nil {
		callback(play)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(g gesture.Gesture) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle("Last: " + g.String())
	}
}

// SetState follows the playback state so the play/pause item offers the
// right action.
func (t *Tray) SetState(s playback.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.playing = s.Status == playback.Playing
	if t.menuPlayPause != nil {
		t.menuPlayPause.SetTitle(playPauseTitle(t.playing))
		if s.Status == playback.Unopened {
			t.menuPlayPause.Disable()
		} else {
			t.menuPlayPause.Enable()
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
