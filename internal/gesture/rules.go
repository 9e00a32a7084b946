package gesture

import (
	"fmt"
	"sort"

	"github.com/ayusman/handplay/internal/detector"
)

// Rule table names.
const (
	RulesCanonical = "canonical"
	RulesClassic   = "classic"
)

// Params tunes the rule predicates.
type Params struct {
	// ThumbReference is the joint the thumb tip must rise above.
	ThumbReference ThumbReference
	// OkayThreshold is the largest thumb-tip to index-tip distance, in
	// normalized image units, that still counts as a closed ring.
	OkayThreshold float64
	// PointDeadzone is the horizontal margin the index tip must clear past
	// its knuckle before a point is read. Zero means sign only.
	PointDeadzone float64
	// FistRequiresThumbCurled makes the fist rule also demand a folded
	// thumb, which lets ThumbsUp match in the canonical table.
	FistRequiresThumbCurled bool
}

// DefaultParams returns the thresholds used by the canonical table.
func DefaultParams() Params {
	return Params{
		ThumbReference: ThumbIP,
		OkayThreshold:  0.05,
		PointDeadzone:  0.05,
	}
}

// Rule is one predicate in a classification table. Match returns None when
// the rule does not apply.
type Rule struct {
	Name  string
	Match func(s FingerState, h *detector.HandLandmarks, p Params) Gesture
}

var tables = map[string][]Rule{
	RulesCanonical: {
		{Name: "fist", Match: matchFist},
		{Name: "thumbs_up", Match: matchThumbsUp},
		{Name: "peace", Match: matchPeace},
		{Name: "okay", Match: matchOkay},
		{Name: "point", Match: matchPoint},
	},
	RulesClassic: {
		{Name: "fist", Match: matchFist},
		{Name: "thumb_over_index", Match: matchThumbOverIndex},
		{Name: "point", Match: matchIndexPoint},
	},
}

// Table returns a copy of the named rule table.
func Table(name string) ([]Rule, error) {
	rules, ok := tables[name]
	if !ok {
		return nil, fmt.Errorf("unknown rule table %q", name)
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out, nil
}

// TableNames lists the available rule tables.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchFist(s FingerState, _ *detector.HandLandmarks, p Params) Gesture {
	if !s.Curled(Index, Middle, Ring, Pinky) {
		return None
	}
	if p.FistRequiresThumbCurled && s.Extended(Thumb) {
		return None
	}
	return Fist
}

func matchThumbsUp(s FingerState, _ *detector.HandLandmarks, _ Params) Gesture {
	if s.Extended(Thumb) && s.Curled(Index, Middle, Ring, Pinky) {
		return ThumbsUp
	}
	return None
}

func matchPeace(s FingerState, _ *detector.HandLandmarks, _ Params) Gesture {
	if s.AllExtended(Index, Middle) && s.Curled(Ring, Pinky) {
		return Peace
	}
	return None
}

func matchOkay(s FingerState, h *detector.HandLandmarks, p Params) Gesture {
	if !s.AllExtended(Middle, Ring, Pinky) {
		return None
	}
	if h.Distance2D(detector.ThumbTip, detector.IndexTip) < p.OkayThreshold {
		return Okay
	}
	return None
}

func matchPoint(s FingerState, h *detector.HandLandmarks, p Params) Gesture {
	if !s.Extended(Index) || !s.Curled(Middle, Ring, Pinky) {
		return None
	}
	return pointDirection(h, p.PointDeadzone)
}

// matchThumbOverIndex is the original controller's play pose: thumb up with
// the index folded, regardless of the other fingers.
func matchThumbOverIndex(s FingerState, _ *detector.HandLandmarks, _ Params) Gesture {
	if s.Extended(Thumb) && !s.Extended(Index) {
		return ThumbsUp
	}
	return None
}

// matchIndexPoint reads any extended index as a point, by sign alone.
func matchIndexPoint(s FingerState, h *detector.HandLandmarks, _ Params) Gesture {
	if !s.Extended(Index) {
		return None
	}
	return pointDirection(h, 0)
}

func pointDirection(h *detector.HandLandmarks, deadzone float64) Gesture {
	dx := h.At(detector.IndexTip).X - h.At(detector.IndexMCP).X
	if deadzone <= 0 {
		if dx > 0 {
			return PointRight
		}
		return PointLeft
	}

	switch {
	case dx > deadzone:
		return PointRight
	case dx < -deadzone:
		return PointLeft
	}
	return None
}
