// Package dispatch serializes commands from every input source (gestures,
// HTTP buttons, the tray, remote controllers) onto one sink.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/transport"
)

// DefaultQueueSize bounds the request channel.
const DefaultQueueSize = 8

// Source names where a command came from.
type Source string

const (
	SourceGesture Source = "gesture"
	SourceButton  Source = "button"
	SourceTray    Source = "tray"
	SourceNetwork Source = "network"
)

// Outcome is what happened to a dispatched command.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeFailed  Outcome = "failed"
	OutcomeDropped Outcome = "dropped"
)

// Sink applies commands: the local player or a transport client.
type Sink interface {
	Apply(ctx context.Context, cmd command.Command) error
}

// Recorder persists dispatch events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Request is one queued command.
type Request struct {
	Command command.Command
	Gesture gesture.Gesture
	Source  Source
	At      time.Time
}

// Event is a request together with its outcome.
type Event struct {
	Request
	Outcome Outcome
	Err     error
}

// Config holds dispatcher settings.
type Config struct {
	QueueSize   int
	SeekSeconds int
}

// Dispatcher owns the queue between producers and the sink. Producers never
// block: a full queue drops the request, and the drop is journaled later by
// Run so the producer does no I/O.
type Dispatcher struct {
	sink        Sink
	logger      *zap.Logger
	queue       chan Request
	drops       chan Event
	seekSeconds int
	now         func() time.Time

	dropLog rate.Sometimes
	failLog rate.Sometimes

	mu          sync.Mutex
	recorder    Recorder
	listeners   []func(Event)
	unavailable bool
}

// New creates a dispatcher that applies commands to sink.
func New(sink Sink, config Config, logger *zap.Logger) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.SeekSeconds <= 0 {
		config.SeekSeconds = command.DefaultSeekSeconds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sink:        sink,
		logger:      logger,
		queue:       make(chan Request, config.QueueSize),
		drops:       make(chan Event, config.QueueSize),
		seekSeconds: config.SeekSeconds,
		now:         time.Now,
		dropLog:     rate.Sometimes{First: 1, Interval: 10 * time.Second},
		failLog:     rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// SetRecorder attaches a journal for dispatch events.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorder = r
}

// Subscribe registers fn to receive every event after it is handled.
func (d *Dispatcher) Subscribe(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// SubmitGesture queues the command mapped from g. It reports whether the
// request was queued; None is never queued.
func (d *Dispatcher) SubmitGesture(g gesture.Gesture, at time.Time) bool {
	cmd, ok := command.FromGesture(g, d.seekSeconds)
	if !ok {
		return false
	}
	return d.enqueue(Request{Command: cmd, Gesture: g, Source: SourceGesture, At: at})
}

// Submit queues cmd from a non-gesture source.
func (d *Dispatcher) Submit(cmd command.Command, source Source) bool {
	return d.enqueue(Request{Command: cmd, Source: source, At: d.now()})
}

func (d *Dispatcher) enqueue(req Request) bool {
	select {
	case d.queue <- req:
		return true
	default:
	}

	d.dropLog.Do(func() {
		d.logger.Warn("command queue full, dropping",
			zap.Stringer("command", req.Command),
			zap.String("source", string(req.Source)),
		)
	})
	// If even the drop backlog is full the event is only logged.
	select {
	case d.drops <- Event{Request: req, Outcome: OutcomeDropped}:
	default:
	}
	return false
}

// Run applies queued requests and journals dropped ones until ctx is
// cancelled. Requests still queued at cancellation are discarded.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-d.drops:
			d.finish(ctx, ev)
		case req := <-d.queue:
			d.Dispatch(ctx, req)
		}
	}
}

// Dispatch applies req synchronously and returns the resulting event.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Event {
	ev := Event{Request: req, Outcome: OutcomeApplied}

	if err := d.sink.Apply(ctx, req.Command); err != nil {
		ev.Outcome = OutcomeFailed
		ev.Err = err
		d.handleFailure(req, err)
	} else {
		d.mu.Lock()
		d.unavailable = false
		d.mu.Unlock()
	}

	d.finish(ctx, ev)
	return ev
}

func (d *Dispatcher) handleFailure(req Request, err error) {
	if !errors.Is(err, transport.ErrTransportUnavailable) {
		d.logger.Error("command failed", zap.Stringer("command", req.Command), zap.Error(err))
		return
	}

	d.mu.Lock()
	first := !d.unavailable
	d.unavailable = true
	d.mu.Unlock()

	if first {
		d.logger.Error("player connection lost, commands will be dropped", zap.Error(err))
		return
	}
	d.failLog.Do(func() {
		d.logger.Warn("player unavailable, dropping command", zap.Stringer("command", req.Command))
	})
}

func (d *Dispatcher) finish(ctx context.Context, ev Event) {
	d.mu.Lock()
	recorder := d.recorder
	listeners := append(([]func(Event))(nil), d.listeners...)
	d.mu.Unlock()

	if recorder != nil {
		if err := recorder.Record(ctx, ev); err != nil {
			d.logger.Warn("failed to record event", zap.Error(err))
		}
	}
	for _, fn := range listeners {
		fn(ev)
	}
}

// Unavailable reports whether the sink last failed with ErrTransportUnavailable.
func (d *Dispatcher) Unavailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unavailable
}

// Pending returns the number of queued requests.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}
