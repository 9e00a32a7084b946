// Package player drives the playback state machine against a decoded video
// source and fans rendered frames out to viewers.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/handplay/internal/capture"
	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/playback"
)

// DefaultRenderFPS is the render loop rate.
const DefaultRenderFPS = 30

// Source yields decoded frames by index. Returned Mats are owned by the caller.
type Source interface {
	ReadAt(index int) (*gocv.Mat, error)
	Close() error
}

// Opener opens a video by path.
type Opener func(path string) (Source, playback.Media, error)

// OpenFile opens a video file through OpenCV.
func OpenFile(path string) (Source, playback.Media, error) {
	video, err := capture.OpenVideoFile(path)
	if err != nil {
		return nil, playback.Media{}, err
	}
	return video, playback.Media{
		Source:      path,
		FPS:         video.FPS(),
		TotalFrames: video.FrameCount(),
	}, nil
}

// FrameSink receives every rendered frame. The Mat is only valid for the
// duration of the call.
type FrameSink interface {
	PublishFrame(frame *gocv.Mat)
}

// Config holds player settings.
type Config struct {
	RenderFPS int
}

// Player owns the video source and the render loop.
type Player struct {
	machine   *playback.Machine
	open      Opener
	interval  time.Duration
	logger    *zap.Logger
	mu        sync.Mutex
	source    Source
	sinks     []FrameSink
	nextShown int
}

// New creates a player around machine. A nil opener uses OpenFile.
func New(machine *playback.Machine, open Opener, config Config, logger *zap.Logger) *Player {
	if open == nil {
		open = OpenFile
	}
	if config.RenderFPS <= 0 {
		config.RenderFPS = DefaultRenderFPS
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		machine:   machine,
		open:      open,
		interval:  time.Second / time.Duration(config.RenderFPS),
		logger:    logger,
		nextShown: -1,
	}
}

// Machine returns the state machine driven by this player.
func (p *Player) Machine() *playback.Machine {
	return p.machine
}

// AddSink registers a frame consumer.
func (p *Player) AddSink(sink FrameSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, sink)
}

// Open loads path, replacing any current source. On failure the current
// source is left untouched.
func (p *Player) Open(path string) error {
	src, media, err := p.open(path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	if err := p.machine.Open(media); err != nil {
		src.Close()
		return fmt.Errorf("open source %s: %w", path, err)
	}

	p.mu.Lock()
	old := p.source
	p.source = src
	p.nextShown = -1
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
	p.logger.Info("opened video",
		zap.String("path", path),
		zap.Float64("fps", media.FPS),
		zap.Int("frames", media.TotalFrames),
	)
	return nil
}

// Release unloads the current source.
func (p *Player) Release() {
	p.machine.Release()

	p.mu.Lock()
	old := p.source
	p.source = nil
	p.nextShown = -1
	p.mu.Unlock()

	if old != nil {
		old.Close()
		p.logger.Info("released video")
	}
}

// Apply executes cmd on the local state machine.
func (p *Player) Apply(_ context.Context, cmd command.Command) error {
	state, changed := p.machine.Apply(cmd)
	if changed {
		p.logger.Debug("applied command",
			zap.Stringer("command", cmd),
			zap.Stringer("status", state.Status),
			zap.Int("position", state.Position),
		)
	}
	return nil
}

// Run renders at the configured rate until ctx is cancelled. The source is
// released on return.
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.Release()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.renderOnce()
		}
	}
}

// renderOnce advances playback by one tick and publishes the frame to show,
// if any. While paused a frame is only rendered after the position moved.
func (p *Player) renderOnce() {
	idx, playing := p.machine.Tick()
	if !playing {
		s := p.machine.Snapshot()
		if s.Status == playback.Unopened {
			return
		}
		p.mu.Lock()
		unchanged := s.Position == p.nextShown
		p.mu.Unlock()
		if unchanged {
			return
		}
		idx = s.Position
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == nil {
		return
	}
	frame, err := p.source.ReadAt(idx)
	if err != nil {
		if playing {
			p.logger.Info("end of media", zap.Int("frame", idx), zap.Error(err))
			p.machine.EndOfMedia()
		} else {
			p.logger.Warn("failed to read frame", zap.Int("frame", idx), zap.Error(err))
			p.nextShown = idx
		}
		return
	}
	defer frame.Close()

	if playing {
		p.nextShown = idx + 1
	} else {
		p.nextShown = idx
	}
	for _, sink := range p.sinks {
		sink.PublishFrame(frame)
	}
}
