package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/ayusman/handplay/internal/gesture"
)

// Run drives the loop until ctx is cancelled:
//  1. read a frame from the camera
//  2. detect hands
//  3. classify, gate and queue the gesture
//
// A camera that cannot be opened ends the loop with a logged error and a nil
// return, so the rest of the process keeps running. Frame and detection
// errors are logged and the loop continues.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		a.logger.Error("camera unavailable, gesture input disabled", zap.Error(err))
		return nil
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("error closing camera", zap.Error(err))
		}
	}()

	a.logger.Info("classification loop started", zap.Duration("interval", a.interval))
	defer a.logger.Info("classification loop stopped")

	readErrs := rate.Sometimes{First: 1, Interval: 5 * time.Second}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}
		if _, err := a.step(); err != nil {
			readErrs.Do(func() { a.logger.Warn("frame skipped", zap.Error(err)) })
		}
	}
}

// step processes one camera frame.
func (a *App) step() (gesture.Gesture, error) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		return gesture.None, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	return a.ProcessFrame(frame, a.now())
}

// ProcessFrame detects hands in frame and hands them to ProcessHands.
func (a *App) ProcessFrame(frame *gocv.Mat, now time.Time) (gesture.Gesture, error) {
	hands, err := a.detector.Detect(frame)
	if err != nil {
		return gesture.None, fmt.Errorf("detect hands: %w", err)
	}
	return a.ProcessHands(hands, now), nil
}
