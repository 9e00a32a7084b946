// Package playback holds the playback state machine shared by the render
// loop and the command dispatcher.
package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ayusman/handplay/internal/command"
)

// Status is the coarse player state.
type Status int

const (
	Unopened Status = iota
	Paused
	Playing
)

func (s Status) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Unopened, Paused, Playing} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// SeekPolicy decides what happens to a seek that lands outside the media.
type SeekPolicy string

const (
	// SeekClamp moves to the nearest valid frame.
	SeekClamp SeekPolicy = "clamp"
	// SeekIgnore drops the seek entirely.
	SeekIgnore SeekPolicy = "ignore"
)

// ParseSeekPolicy validates a policy name.
func ParseSeekPolicy(s string) (SeekPolicy, error) {
	switch SeekPolicy(s) {
	case SeekClamp, SeekIgnore:
		return SeekPolicy(s), nil
	}
	return "", fmt.Errorf("unknown seek policy %q", s)
}

// ErrInvalidMedia is returned by Open for media without a usable frame rate
// or a known, non-zero length.
var ErrInvalidMedia = errors.New("invalid media")

// Media describes an opened video source.
type Media struct {
	Source      string
	FPS         float64
	TotalFrames int
}

// State is a snapshot of the playback state.
type State struct {
	Status      Status  `json:"status"`
	Muted       bool    `json:"muted"`
	Position    int     `json:"position_frames"`
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps"`
	Source      string  `json:"source,omitempty"`
}

// Paused reports whether the state is anything but Playing.
func (s State) Paused() bool {
	return s.Status != Playing
}

// Machine owns the playback state. All transitions happen under one mutex so
// the render loop never observes a half-applied command.
type Machine struct {
	mu        sync.Mutex
	state     State
	policy    SeekPolicy
	listeners []func(State)
}

// NewMachine creates an unopened machine.
func NewMachine(policy SeekPolicy) *Machine {
	if policy == "" {
		policy = SeekClamp
	}
	return &Machine{policy: policy}
}

// Subscribe registers fn to be called with the new state after every
// transition. fn runs outside the machine lock on the goroutine that caused
// the transition.
func (m *Machine) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open loads media: the machine becomes Paused at frame 0. Opening while
// another source is loaded replaces it; mute is kept.
func (m *Machine) Open(media Media) error {
	if media.FPS <= 0 || math.IsNaN(media.FPS) || media.TotalFrames <= 0 {
		return fmt.Errorf("%w: fps=%v frames=%d", ErrInvalidMedia, media.FPS, media.TotalFrames)
	}

	m.mu.Lock()
	m.state = State{
		Status:      Paused,
		Muted:       m.state.Muted,
		TotalFrames: media.TotalFrames,
		FPS:         media.FPS,
		Source:      media.Source,
	}
	s := m.state
	m.mu.Unlock()

	m.notify(s)
	return nil
}

// Release unloads the media and returns to Unopened.
func (m *Machine) Release() {
	m.mu.Lock()
	if m.state.Status == Unopened {
		m.mu.Unlock()
		return
	}
	m.state = State{Muted: m.state.Muted}
	s := m.state
	m.mu.Unlock()

	m.notify(s)
}

// Apply executes cmd and reports whether the state changed. Commands on an
// unopened machine are ignored.
func (m *Machine) Apply(cmd command.Command) (State, bool) {
	m.mu.Lock()
	before := m.state
	if before.Status != Unopened {
		m.apply(cmd)
	}
	after := m.state
	m.mu.Unlock()

	changed := after != before
	if changed {
		m.notify(after)
	}
	return after, changed
}

func (m *Machine) apply(cmd command.Command) {
	s := &m.state
	switch cmd.Kind {
	case command.Play:
		if s.Status == Paused {
			s.Status = Playing
		}
	case command.Pause:
		if s.Status == Playing {
			s.Status = Paused
		}
	case command.ToggleMute:
		s.Muted = !s.Muted
	case command.Restart:
		s.Position = 0
	case command.SeekForward, command.SeekBackward:
		m.seek(cmd.Delta())
	}
}

func (m *Machine) seek(seconds int) {
	s := &m.state
	target := s.Position + int(math.Round(float64(seconds)*s.FPS))
	last := s.TotalFrames - 1
	if last < 0 {
		last = 0
	}

	if target >= 0 && target <= last {
		s.Position = target
		return
	}
	if m.policy == SeekIgnore {
		return
	}
	if target < 0 {
		s.Position = 0
	} else {
		s.Position = last
	}
}

// Tick advances playback by one frame. It returns the frame to display and
// true while Playing. When the position reaches the end of the media the
// machine pauses and rewinds to frame 0.
func (m *Machine) Tick() (int, bool) {
	m.mu.Lock()
	if m.state.Status != Playing {
		m.mu.Unlock()
		return 0, false
	}

	frame := m.state.Position
	m.state.Position++
	ended := m.state.Position >= m.state.TotalFrames
	if ended {
		m.state.Status = Paused
		m.state.Position = 0
	}
	s := m.state
	m.mu.Unlock()

	if ended {
		m.notify(s)
	}
	return frame, true
}

// EndOfMedia forces the end-of-media transition, used when the source stops
// yielding frames before the advertised frame count.
func (m *Machine) EndOfMedia() {
	m.mu.Lock()
	if m.state.Status != Playing {
		m.mu.Unlock()
		return
	}
	m.state.Status = Paused
	m.state.Position = 0
	s := m.state
	m.mu.Unlock()

	m.notify(s)
}

func (m *Machine) notify(s State) {
	m.mu.Lock()
	listeners := append(([]func(State))(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
