package gesture

import (
	"fmt"

	"github.com/ayusman/handplay/internal/detector"
)

// TieBreak picks one gesture when several hands classify in the same frame.
type TieBreak string

const (
	// TieBreakFirst keeps the first non-None hand in tracker order.
	TieBreakFirst TieBreak = "first"
	// TieBreakLast keeps the last non-None hand in tracker order.
	TieBreakLast TieBreak = "last"
)

// ParseTieBreak validates a tie-break policy name.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case TieBreakFirst, TieBreakLast:
		return TieBreak(s), nil
	}
	return "", fmt.Errorf("unknown tie-break policy %q", s)
}

// Classifier applies an ordered rule table to hand landmarks. It holds no
// per-frame state and is safe for concurrent use.
type Classifier struct {
	table    string
	rules    []Rule
	params   Params
	tieBreak TieBreak
}

// NewClassifier builds a classifier over the named rule table.
func NewClassifier(table string, params Params, tieBreak TieBreak) (*Classifier, error) {
	rules, err := Table(table)
	if err != nil {
		return nil, err
	}
	if tieBreak == "" {
		tieBreak = TieBreakFirst
	}
	if _, err := ParseTieBreak(string(tieBreak)); err != nil {
		return nil, err
	}

	return &Classifier{
		table:    table,
		rules:    rules,
		params:   params,
		tieBreak: tieBreak,
	}, nil
}

// TableName returns the rule table the classifier was built from.
func (c *Classifier) TableName() string {
	return c.table
}

// Classify returns the gesture of the first rule that matches, or None.
func (c *Classifier) Classify(h *detector.HandLandmarks) Gesture {
	if h == nil {
		return None
	}

	state := Extract(h, c.params.ThumbReference)
	for _, r := range c.rules {
		if g := r.Match(state, h, c.params); g != None {
			return g
		}
	}
	return None
}

// ClassifyHands classifies every hand independently and returns the single
// gesture selected by the tie-break policy together with the index of the
// hand it came from. The index is -1 when no hand matched.
func (c *Classifier) ClassifyHands(hands []detector.HandLandmarks) (Gesture, int) {
	picked, at := None, -1
	for i := range hands {
		g := c.Classify(&hands[i])
		if g == None {
			continue
		}
		picked, at = g, i
		if c.tieBreak == TieBreakFirst {
			break
		}
	}
	return picked, at
}
