package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns the same configured result for every frame.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ScriptedDetector replays a fixed sequence of per-frame results, one entry
// per Detect call. Once the script is exhausted it reports no hands.
type ScriptedDetector struct {
	mu     sync.Mutex
	frames [][]HandLandmarks
	next   int
}

// NewScriptedDetector creates a detector that replays frames in order.
func NewScriptedDetector(frames ...[]HandLandmarks) *ScriptedDetector {
	return &ScriptedDetector{frames: frames}
}

// Detect returns the next scripted frame.
func (s *ScriptedDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		return nil, nil
	}
	hands := s.frames[s.next]
	s.next++
	return hands, nil
}

// Remaining reports how many scripted frames have not been consumed.
func (s *ScriptedDetector) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.next
}

// Close is a no-op.
func (s *ScriptedDetector) Close() error {
	return nil
}

// FistLandmarks returns a right hand with every finger, thumb included,
// folded below its reference joint.
func FistLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.70, Z: -0.01}
	h.Points[ThumbIP] = Point3D{X: 0.56, Y: 0.68, Z: -0.03}
	h.Points[ThumbTip] = Point3D{X: 0.53, Y: 0.72, Z: -0.04}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	h.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	h.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	h.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	h.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	h.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return h
}

// ThumbsUpLandmarks returns a fist with the thumb raised.
func ThumbsUpLandmarks() HandLandmarks {
	h := FistLandmarks()

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	return h
}

// PeaceLandmarks returns index and middle raised in a V, the rest folded.
func PeaceLandmarks() HandLandmarks {
	h := FistLandmarks()

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.62, Y: 0.36, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.49, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.41, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.47, Y: 0.30, Z: 0.0}

	return h
}

// OkayLandmarks returns thumb and index tips touching in a ring with the
// other three fingers raised.
func OkayLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()

	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.68, Z: 0.01}
	h.Points[ThumbIP] = Point3D{X: 0.61, Y: 0.60, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.52, Z: -0.01}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.58, Z: -0.01}
	h.Points[IndexDIP] = Point3D{X: 0.61, Y: 0.54, Z: -0.02}
	h.Points[IndexTip] = Point3D{X: 0.62, Y: 0.53, Z: -0.02}

	return h
}

// PointingLandmarks returns a fist with the index finger extended and its
// tip displaced horizontally by dx from the index knuckle.
func PointingLandmarks(dx float64) HandLandmarks {
	h := FistLandmarks()

	mcp := Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexMCP] = mcp
	h.Points[IndexPIP] = Point3D{X: mcp.X + dx*0.4, Y: 0.62, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: mcp.X + dx*0.7, Y: 0.60, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: mcp.X + dx, Y: 0.58, Z: 0.0}

	return h
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}
