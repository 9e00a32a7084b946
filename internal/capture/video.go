package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEndOfVideo is returned by ReadAt when no frame can be decoded at the
// requested index.
var ErrEndOfVideo = errors.New("end of video")

// VideoFile decodes frames from a video file with random access.
type VideoFile struct {
	path    string
	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     float64
	frames  int
	next    int
}

// OpenVideoFile opens path and reads its frame rate and frame count.
func OpenVideoFile(path string) (*VideoFile, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: unsupported or missing file", path)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		capture.Close()
		return nil, fmt.Errorf("open video %s: no frame rate", path)
	}

	// Live streams and some containers report no length; playback needs one
	// to end and to clamp seeks.
	frames := int(capture.Get(gocv.VideoCaptureFrameCount))
	if frames <= 0 {
		capture.Close()
		return nil, fmt.Errorf("open video %s: unknown frame count", path)
	}

	return &VideoFile{
		path:    path,
		capture: capture,
		fps:     fps,
		frames:  frames,
	}, nil
}

func (v *VideoFile) Path() string    { return v.path }
func (v *VideoFile) FPS() float64    { return v.fps }
func (v *VideoFile) FrameCount() int { return v.frames }

// ReadAt decodes frame index. Sequential reads avoid a seek.
// The caller is responsible for closing the returned Mat.
func (v *VideoFile) ReadAt(index int) (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil, ErrEndOfVideo
	}
	if index < 0 || index >= v.frames {
		return nil, fmt.Errorf("%w: frame %d of %d", ErrEndOfVideo, index, v.frames)
	}

	if index != v.next {
		v.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		v.next = -1
		return nil, fmt.Errorf("%w: frame %d", ErrEndOfVideo, index)
	}
	v.next = index + 1
	return &mat, nil
}

// Close releases the decoder.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil
	}
	err := v.capture.Close()
	v.capture = nil
	return err
}
