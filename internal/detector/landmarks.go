// Package detector provides hand tracking interfaces and the landmark model
// consumed by gesture classification.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Joint identifies one of the 21 hand landmarks, following MediaPipe ordering.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Joint int

const (
	Wrist Joint = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumLandmarks is the number of points in a well-formed hand.
const NumLandmarks = 21

var jointNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

func (j Joint) String() string {
	if j < 0 || int(j) >= NumLandmarks {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ErrMalformedFrame is returned when a tracker result does not carry exactly
// one point per joint.
var ErrMalformedFrame = errors.New("malformed landmark frame")

// Point3D is a landmark position. X and Y are normalized to [0,1] image
// coordinates; Z is tracker-relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one hand's landmarks for one frame.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// At returns the point for joint j.
func (h *HandLandmarks) At(j Joint) Point3D {
	return h.Points[j]
}

// FromPoints builds a HandLandmarks from a tracker point list. It fails with
// ErrMalformedFrame unless exactly NumLandmarks points are given.
func FromPoints(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d points, want %d", ErrMalformedFrame, len(points), NumLandmarks)
	}

	h := HandLandmarks{Handedness: handedness, Score: score}
	copy(h.Points[:], points)
	return h, nil
}

// Distance2D is the Euclidean distance between two joints in the image plane.
func (h *HandLandmarks) Distance2D(a, b Joint) float64 {
	pa, pb := h.Points[a], h.Points[b]
	return math.Hypot(pa.X-pb.X, pa.Y-pb.Y)
}
