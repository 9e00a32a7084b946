package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/playback"
	"github.com/ayusman/handplay/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// machineSink applies commands to a playback machine.
type machineSink struct{ m *playback.Machine }

func (s machineSink) Apply(_ context.Context, cmd command.Command) error {
	s.m.Apply(cmd)
	return nil
}

type failingSink struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *failingSink) Apply(context.Context, command.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

type memRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *memRecorder) Record(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *memRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func openedMachine(t *testing.T) *playback.Machine {
	t.Helper()
	m := playback.NewMachine(playback.SeekClamp)
	require.NoError(t, m.Open(playback.Media{FPS: 30, TotalFrames: 300}))
	return m
}

func drain(t *testing.T, d *Dispatcher) {
	t.Helper()
	for d.Pending() > 0 {
		d.Dispatch(context.Background(), <-d.queue)
	}
	for len(d.drops) > 0 {
		d.finish(context.Background(), <-d.drops)
	}
}

// blockingRecorder holds every Record call until release is closed.
type blockingRecorder struct {
	memRecorder
	release chan struct{}
}

func (r *blockingRecorder) Record(ctx context.Context, ev Event) error {
	<-r.release
	return r.memRecorder.Record(ctx, ev)
}

func TestDispatcher_PeaceTwiceWithinOneSecondFlipsMuteOnce(t *testing.T) {
	m := openedMachine(t)
	d := New(machineSink{m}, Config{}, nil)
	gate := gesture.NewGate(2 * time.Second)
	start := time.Unix(1000, 0)

	for _, at := range []time.Time{start, start.Add(900 * time.Millisecond)} {
		if g := gate.Admit(gesture.Peace, at); g != gesture.None {
			d.SubmitGesture(g, at)
		}
	}
	drain(t, d)

	assert.True(t, m.Snapshot().Muted)
}

func TestDispatcher_ThumbsUpPlaysToEnd(t *testing.T) {
	m := openedMachine(t)
	d := New(machineSink{m}, Config{}, nil)

	require.True(t, d.SubmitGesture(gesture.ThumbsUp, time.Now()))
	drain(t, d)
	require.Equal(t, playback.Playing, m.Snapshot().Status)

	for i := 0; i < 300; i++ {
		m.Tick()
	}
	s := m.Snapshot()
	assert.Equal(t, playback.Paused, s.Status)
	assert.Equal(t, 0, s.Position)
}

func TestDispatcher_GestureTable(t *testing.T) {
	tests := []struct {
		gesture gesture.Gesture
		check   func(t *testing.T, s playback.State)
	}{
		{gesture.ThumbsUp, func(t *testing.T, s playback.State) { assert.Equal(t, playback.Playing, s.Status) }},
		{gesture.PointRight, func(t *testing.T, s playback.State) { assert.Equal(t, 5*30, s.Position) }},
		{gesture.PointLeft, func(t *testing.T, s playback.State) { assert.Equal(t, 0, s.Position) }},
		{gesture.Peace, func(t *testing.T, s playback.State) { assert.True(t, s.Muted) }},
		{gesture.Okay, func(t *testing.T, s playback.State) { assert.Equal(t, 0, s.Position) }},
		{gesture.Fist, func(t *testing.T, s playback.State) { assert.Equal(t, playback.Paused, s.Status) }},
	}

	m := openedMachine(t)
	d := New(machineSink{m}, Config{SeekSeconds: 5}, nil)
	for _, tt := range tests {
		t.Run(tt.gesture.String(), func(t *testing.T) {
			d.SubmitGesture(tt.gesture, time.Now())
			drain(t, d)
			tt.check(t, m.Snapshot())
		})
	}

	assert.False(t, d.SubmitGesture(gesture.None, time.Now()))
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	rec := &memRecorder{}
	d := New(&failingSink{}, Config{QueueSize: 2}, nil)
	d.SetRecorder(rec)

	assert.True(t, d.Submit(command.Command{Kind: command.Play}, SourceButton))
	assert.True(t, d.Submit(command.Command{Kind: command.Pause}, SourceButton))
	assert.False(t, d.Submit(command.Command{Kind: command.Restart}, SourceButton))
	assert.Equal(t, 2, d.Pending())
	assert.Empty(t, rec.snapshot(), "drops are journaled by the dispatch loop")

	drain(t, d)
	events := rec.snapshot()
	require.Len(t, events, 3)

	var dropped []Event
	for _, ev := range events {
		if ev.Outcome == OutcomeDropped {
			dropped = append(dropped, ev)
		}
	}
	require.Len(t, dropped, 1)
	assert.Equal(t, command.Restart, dropped[0].Command.Kind)
}

func TestDispatcher_DropDoesNotWaitForJournal(t *testing.T) {
	rec := &blockingRecorder{release: make(chan struct{})}
	d := New(&failingSink{}, Config{QueueSize: 1}, nil)
	d.SetRecorder(rec)

	var seen []Outcome
	var mu sync.Mutex
	d.Subscribe(func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Outcome)
		mu.Unlock()
	})

	require.True(t, d.Submit(command.Command{Kind: command.Play}, SourceGesture))

	submitted := make(chan bool, 1)
	go func() { submitted <- d.Submit(command.Command{Kind: command.Pause}, SourceGesture) }()
	select {
	case ok := <-submitted:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("a full queue blocked the producer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	close(rec.release)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []Outcome{OutcomeApplied, OutcomeDropped}, seen)
}

func TestDispatcher_TransportUnavailable(t *testing.T) {
	sink := &failingSink{err: fmt.Errorf("%w: broken pipe", transport.ErrTransportUnavailable)}
	rec := &memRecorder{}
	d := New(sink, Config{}, nil)
	d.SetRecorder(rec)

	var seen []Outcome
	d.Subscribe(func(ev Event) { seen = append(seen, ev.Outcome) })

	for i := 0; i < 3; i++ {
		ev := d.Dispatch(context.Background(), Request{Command: command.Command{Kind: command.Play}, Source: SourceGesture})
		assert.True(t, errors.Is(ev.Err, transport.ErrTransportUnavailable))
	}

	assert.True(t, d.Unavailable())
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, []Outcome{OutcomeFailed, OutcomeFailed, OutcomeFailed}, seen)
	assert.Len(t, rec.snapshot(), 3)

	sink.err = nil
	d.Dispatch(context.Background(), Request{Command: command.Command{Kind: command.Play}})
	assert.False(t, d.Unavailable())
}

func TestDispatcher_RecorderErrorDoesNotFailDispatch(t *testing.T) {
	m := openedMachine(t)
	d := New(machineSink{m}, Config{}, nil)
	d.SetRecorder(&memRecorder{err: errors.New("disk full")})

	ev := d.Dispatch(context.Background(), Request{Command: command.Command{Kind: command.ToggleMute}})
	assert.Equal(t, OutcomeApplied, ev.Outcome)
	assert.True(t, m.Snapshot().Muted)
}

func TestDispatcher_RunAppliesInOrder(t *testing.T) {
	m := openedMachine(t)
	d := New(machineSink{m}, Config{}, nil)

	applied := make(chan Event, 8)
	d.Subscribe(func(ev Event) { applied <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	d.Submit(command.Command{Kind: command.Play}, SourceButton)
	d.Submit(command.Seek(2), SourceNetwork)
	d.Submit(command.Command{Kind: command.Pause}, SourceTray)

	var sources []Source
	for i := 0; i < 3; i++ {
		select {
		case ev := <-applied:
			sources = append(sources, ev.Source)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []Source{SourceButton, SourceNetwork, SourceTray}, sources)
	s := m.Snapshot()
	assert.Equal(t, playback.Paused, s.Status)
	assert.Equal(t, 60, s.Position)
}
