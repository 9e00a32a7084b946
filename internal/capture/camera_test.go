package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		config  CameraConfig
		wantFPS int
	}{
		{
			name:    "defaults",
			config:  CameraConfig{},
			wantFPS: DefaultFPS,
		},
		{
			name:    "explicit fps",
			config:  CameraConfig{DeviceID: 1, FPS: 30},
			wantFPS: 30,
		},
		{
			name:    "negative fps falls back",
			config:  CameraConfig{DeviceID: 2, FPS: -1, Flip: true},
			wantFPS: DefaultFPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(CameraConfig{})

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{name: "set to 10", fps: 10, wantFPS: 10},
		{name: "set to 1", fps: 1, wantFPS: 1},
		{name: "set to 0 should keep previous", fps: 0, wantFPS: 1},
		{name: "set to negative should keep previous", fps: -5, wantFPS: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(CameraConfig{})

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(CameraConfig{})

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(CameraConfig{Flip: true})
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestOpenVideoFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mp4")

	if _, err := OpenVideoFile(path); err == nil {
		t.Fatal("OpenVideoFile() on a missing file should fail")
	}
}

func TestOpenVideoFile_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	path := os.Getenv("HANDPLAY_TEST_VIDEO")
	if path == "" {
		t.Skip("HANDPLAY_TEST_VIDEO not set")
	}

	video, err := OpenVideoFile(path)
	if err != nil {
		t.Fatalf("OpenVideoFile() error = %v", err)
	}
	defer video.Close()

	if video.FPS() <= 0 {
		t.Errorf("FPS() = %v, want > 0", video.FPS())
	}

	last := video.FrameCount() - 1
	for _, idx := range []int{0, 1, last, 0} {
		mat, err := video.ReadAt(idx)
		if err != nil {
			t.Fatalf("ReadAt(%d) error = %v", idx, err)
		}
		mat.Close()
	}

	if _, err := video.ReadAt(video.FrameCount()); !errors.Is(err, ErrEndOfVideo) {
		t.Errorf("ReadAt(past end) error = %v, want ErrEndOfVideo", err)
	}
}
