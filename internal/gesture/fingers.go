package gesture

import (
	"fmt"

	"github.com/ayusman/handplay/internal/detector"
)

// Finger names one digit of the hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	numFingers
)

func (f Finger) String() string {
	switch f {
	case Thumb:
		return "thumb"
	case Index:
		return "index"
	case Middle:
		return "middle"
	case Ring:
		return "ring"
	case Pinky:
		return "pinky"
	}
	return fmt.Sprintf("finger(%d)", int(f))
}

// ThumbReference selects the joint the thumb tip is compared against.
// MCP is the less sensitive choice: the tip has to rise above the base
// knuckle rather than the middle joint.
type ThumbReference string

const (
	ThumbIP  ThumbReference = "ip"
	ThumbMCP ThumbReference = "mcp"
)

// FingerState records whether each finger is extended in one frame.
type FingerState [numFingers]bool

// Extended reports whether finger f is extended.
func (s FingerState) Extended(f Finger) bool {
	return s[f]
}

// Curled reports whether every listed finger is curled.
func (s FingerState) Curled(fingers ...Finger) bool {
	for _, f := range fingers {
		if s[f] {
			return false
		}
	}
	return true
}

// AllExtended reports whether every listed finger is extended.
func (s FingerState) AllExtended(fingers ...Finger) bool {
	for _, f := range fingers {
		if !s[f] {
			return false
		}
	}
	return true
}

func (s FingerState) String() string {
	out := make([]byte, 0, numFingers)
	for f := Thumb; f < numFingers; f++ {
		if s[f] {
			out = append(out, 'E')
		} else {
			out = append(out, 'c')
		}
	}
	return string(out)
}

// fingerJoints maps each non-thumb finger to its (tip, proximal) joints.
var fingerJoints = [numFingers][2]detector.Joint{
	Index:  {detector.IndexTip, detector.IndexPIP},
	Middle: {detector.MiddleTip, detector.MiddlePIP},
	Ring:   {detector.RingTip, detector.RingPIP},
	Pinky:  {detector.PinkyTip, detector.PinkyPIP},
}

// Extract derives the finger state of a hand. A finger is extended when its
// tip sits higher on screen (smaller y) than its proximal joint, which
// assumes an upright hand in a mirrored image.
func Extract(h *detector.HandLandmarks, thumbRef ThumbReference) FingerState {
	var s FingerState

	thumbJoint := detector.ThumbIP
	if thumbRef == ThumbMCP {
		thumbJoint = detector.ThumbMCP
	}
	s[Thumb] = h.At(detector.ThumbTip).Y < h.At(thumbJoint).Y

	for f := Index; f < numFingers; f++ {
		tip, proximal := fingerJoints[f][0], fingerJoints[f][1]
		s[f] = h.At(tip).Y < h.At(proximal).Y
	}
	return s
}
