// Package app runs the gesture classification loop: camera frames in,
// debounced gestures out to the dispatcher.
package app

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handplay/internal/capture"
	"github.com/ayusman/handplay/internal/detector"
	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/gesture"
)

// Config wires the loop's collaborators.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier *gesture.Classifier
	Gate       *gesture.Gate
	Dispatcher *dispatch.Dispatcher
	// FPS is the classification rate; the camera rate when zero.
	FPS int
	// Now is the clock fed to the cooldown gate; time.Now when nil.
	Now func() time.Time
}

// App is the classification loop. Gesture input can be switched off at
// runtime without stopping the camera.
type App struct {
	camera     capture.Camera
	detector   detector.Detector
	classifier *gesture.Classifier
	gate       *gesture.Gate
	dispatcher *dispatch.Dispatcher
	interval   time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu          sync.RWMutex
	enabled     bool
	lastGesture gesture.Gesture
	listeners   []func(gesture.Gesture, time.Time)
}

// New creates an App. Gesture input starts enabled.
func New(config Config, logger *zap.Logger) (*App, error) {
	if config.Camera == nil || config.Detector == nil || config.Classifier == nil || config.Dispatcher == nil {
		return nil, errors.New("app: camera, detector, classifier and dispatcher are required")
	}
	if config.Gate == nil {
		config.Gate = gesture.NewGate(gesture.DefaultCooldown)
	}
	if config.FPS <= 0 {
		config.FPS = config.Camera.FPS()
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &App{
		camera:     config.Camera,
		detector:   config.Detector,
		classifier: config.Classifier,
		gate:       config.Gate,
		dispatcher: config.Dispatcher,
		interval:   time.Second / time.Duration(config.FPS),
		now:        config.Now,
		logger:     logger,
		enabled:    true,
	}, nil
}

// SetEnabled enables or disables gesture input.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		a.logger.Info("gesture input toggled", zap.Bool("enabled", enabled))
	}
	a.enabled = enabled
}

// IsEnabled returns whether gesture input is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LastGesture returns the most recently accepted gesture and when it was
// accepted. It is None until the first acceptance.
func (a *App) LastGesture() (gesture.Gesture, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastGesture == gesture.None {
		return gesture.None, time.Time{}
	}
	at, _ := a.gate.LastAccepted()
	return a.lastGesture, at
}

// OnGesture registers fn to be called for every accepted gesture.
func (a *App) OnGesture(fn func(gesture.Gesture, time.Time)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// ProcessHands classifies one frame's hands, runs the result through the
// cooldown gate and queues the accepted gesture. It returns the gesture that
// was accepted, or None. A gesture the dispatcher drops does not start a
// cooldown.
func (a *App) ProcessHands(hands []detector.HandLandmarks, now time.Time) gesture.Gesture {
	if !a.IsEnabled() {
		return gesture.None
	}

	candidate, hand := a.classifier.ClassifyHands(hands)
	if !a.gate.Ready(candidate, now) {
		return gesture.None
	}
	if !a.dispatcher.SubmitGesture(candidate, now) {
		a.logger.Debug("gesture dropped", zap.Stringer("gesture", candidate))
		return gesture.None
	}
	accepted := candidate

	a.mu.Lock()
	a.gate.Commit(now)
	a.lastGesture = accepted
	listeners := append(([]func(gesture.Gesture, time.Time))(nil), a.listeners...)
	a.mu.Unlock()

	a.logger.Info("gesture accepted",
		zap.Stringer("gesture", accepted),
		zap.Int("hand", hand),
		zap.Int("hands", len(hands)),
	)

	for _, fn := range listeners {
		fn(accepted, now)
	}
	return accepted
}
