package store

import (
	"context"

	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/gesture"
)

// Journal records dispatcher events in the events table.
type Journal struct {
	events *EventRepository
}

// NewJournal creates a dispatch.Recorder backed by s.
func NewJournal(s *Store) *Journal {
	return &Journal{events: s.Events()}
}

// Record implements dispatch.Recorder.
func (j *Journal) Record(ctx context.Context, ev dispatch.Event) error {
	e := &Event{
		Source:    string(ev.Source),
		Command:   ev.Command.String(),
		Outcome:   string(ev.Outcome),
		CreatedAt: ev.At,
	}
	if ev.Gesture != gesture.None {
		e.Gesture = ev.Gesture.String()
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	return j.events.Create(ctx, e)
}
