package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handplay/internal/app"
	"github.com/ayusman/handplay/internal/capture"
	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/config"
	"github.com/ayusman/handplay/internal/detector"
	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/playback"
	"github.com/ayusman/handplay/internal/player"
	"github.com/ayusman/handplay/internal/server"
	"github.com/ayusman/handplay/internal/store"
	"github.com/ayusman/handplay/internal/tray"
)

// journalKeep bounds the event journal; older rows are pruned at startup.
const journalKeep = 10000

// newPlayer builds the state machine and render loop, opening path if set.
func newPlayer(cfg *config.Config, path string, logger *zap.Logger) (*player.Player, error) {
	policy, err := playback.ParseSeekPolicy(cfg.Player.SeekPolicy)
	if err != nil {
		return nil, err
	}
	p := player.New(playback.NewMachine(policy), player.OpenFile, player.Config{RenderFPS: cfg.Player.RenderFPS}, logger.Named("player"))
	if path != "" {
		if err := p.Open(path); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newDispatcher(cfg *config.Config, sink dispatch.Sink, logger *zap.Logger) *dispatch.Dispatcher {
	return dispatch.New(sink, dispatch.Config{
		QueueSize:   cfg.Transport.QueueSize,
		SeekSeconds: cfg.Player.SeekSeconds,
	}, logger.Named("dispatch"))
}

// openJournal attaches the event journal to d. The returned store is nil
// when the journal is disabled.
func openJournal(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, logger *zap.Logger) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event journal: %w", err)
	}
	if n, err := st.Events().Prune(ctx, journalKeep); err != nil {
		logger.Warn("failed to prune event journal", zap.Error(err))
	} else if n > 0 {
		logger.Debug("pruned event journal", zap.Int64("removed", n))
	}
	d.SetRecorder(store.NewJournal(st))
	return st, nil
}

// newGestureApp builds the classification loop feeding d.
func newGestureApp(cfg *config.Config, d *dispatch.Dispatcher, logger *zap.Logger) (*app.App, func(), error) {
	classifier, err := gesture.NewClassifier(cfg.Gesture.Rules, cfg.Gesture.Params(), gesture.TieBreak(cfg.Gesture.TieBreak))
	if err != nil {
		return nil, nil, err
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
	}, logger.Named("detector"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start hand tracker: %w", err)
	}

	camera := capture.NewCamera(capture.CameraConfig{
		DeviceID: cfg.Camera.DeviceID,
		FPS:      cfg.Camera.FPS,
		Flip:     cfg.Camera.Flip,
	})

	gate := gesture.NewGate(cfg.Gesture.Cooldown)
	a, err := app.New(app.Config{
		Camera:     camera,
		Detector:   det,
		Classifier: classifier,
		Gate:       gate,
		Dispatcher: d,
		FPS:        cfg.Camera.FPS,
	}, logger.Named("gestures"))
	if err != nil {
		det.Close()
		return nil, nil, err
	}

	logger.Info("gesture input ready",
		zap.String("rules", classifier.TableName()),
		zap.Duration("cooldown", gate.Cooldown()),
	)
	return a, func() { det.Close() }, nil
}

// surface holds the optional user-facing parts of a player process.
type surface struct {
	http *server.Server
	hub  *server.Hub
	tray *tray.Tray
}

// newSurface builds the HTTP control surface and tray around p. Both route
// commands through d.
func newSurface(cfg *config.Config, p *player.Player, d *dispatch.Dispatcher, st *store.Store, logger *zap.Logger) *surface {
	var s surface
	machine := p.Machine()

	if cfg.Server.Enabled {
		s.hub = server.NewHub(machine.Snapshot, logger.Named("ws"))
		machine.Subscribe(s.hub.PublishState)
		d.Subscribe(s.hub.PublishEvent)

		frames := server.NewFrameHub(logger.Named("stream"))
		p.AddSink(frames)

		s.http = server.New(server.Config{
			Addr:      cfg.Server.Addr,
			StaticDir: cfg.Server.StaticDir,
			State:     machine,
			Media:     p,
			Commands:  d,
			Store:     st,
			Frames:    frames,
			Hub:       s.hub,
		}, logger)
	}

	if cfg.Tray.Enabled {
		s.tray = tray.New()
		s.tray.OnPlayPause(func(play bool) {
			cmd := command.Command{Kind: command.Pause}
			if play {
				cmd = command.Command{Kind: command.Play}
			}
			d.Submit(cmd, dispatch.SourceTray)
		})
		machine.Subscribe(s.tray.SetState)
	}
	return &s
}

// attachGestures forwards accepted gestures from a to the surface.
func (s *surface) attachGestures(a *app.App) {
	if s.hub != nil {
		a.OnGesture(s.hub.PublishGesture)
	}
	if s.tray != nil {
		s.tray.OnToggle(a.SetEnabled)
		a.OnGesture(func(g gesture.Gesture, _ time.Time) { s.tray.SetLastGesture(g) })
	}
}

func (s *surface) start(ctx context.Context, g *errgroup.Group) {
	if s.http != nil {
		g.Go(func() error { return s.http.ListenAndServe(ctx) })
	}
}

// wait blocks until the group finishes. With a tray the tray owns the calling
// goroutine and quitting it cancels the group.
func (s *surface) wait(g *errgroup.Group, cancel context.CancelFunc) error {
	if s.tray == nil {
		return g.Wait()
	}

	s.tray.OnQuit(cancel)
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		s.tray.Quit()
	}()
	s.tray.Run()
	cancel()
	return <-done
}
