package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// trackerScript is the Python helper that wraps MediaPipe Hands.
const trackerScript = "hand_tracker.py"

// idleShutdown is how long the tracker process may sit unused before it is
// stopped. It is restarted lazily on the next Detect.
const idleShutdown = 30 * time.Second

// MediaPipeDetector implements Detector by streaming frames to a Python
// MediaPipe subprocess. Frames go out as a 4-byte big-endian length followed
// by JPEG bytes; each reply is one JSON line.
type MediaPipeDetector struct {
	config    Config
	script    string
	logger    *zap.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the tracker script and returns a detector.
// The subprocess is started lazily on first detection.
func NewMediaPipeDetector(config Config, logger *zap.Logger) (*MediaPipeDetector, error) {
	script := findTrackerScript()
	if script == "" {
		return nil, fmt.Errorf("%s not found", trackerScript)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		logger: logger.Named("mediapipe"),
	}, nil
}

// Detect sends one frame to the tracker and returns the hands it reports.
// Hands with the wrong number of points are dropped.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read tracker reply: %w", err)
	}

	hands, err := decodeHands(line)
	if err != nil {
		return nil, err
	}

	result := make([]HandLandmarks, 0, len(hands))
	for _, h := range hands {
		lm, err := FromPoints(h.Points, h.Handedness, h.Score)
		if err != nil {
			d.logger.Debug("Skipping hand", zap.Error(err))
			continue
		}
		result = append(result, lm)
	}

	d.resetIdleTimer()
	return result, nil
}

// Close stops the tracker subprocess.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start hand tracker: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.logger.Info("Hand tracker started", zap.String("python", python), zap.Int("pid", d.cmd.Process.Pid))
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		d.logger.Warn("Hand tracker exited", zap.Int("code", exitErr.ExitCode()))
		return nil
	}
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			d.logger.Warn("Idle shutdown failed", zap.Error(err))
		}
	})
}

// trackerHand is one hand in the tracker's JSON reply.
type trackerHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func decodeHands(line []byte) ([]trackerHand, error) {
	var reply struct {
		Hands []trackerHand `json:"hands"`
		Error string        `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("parse tracker reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("hand tracker: %s", reply.Error)
	}
	return reply.Hands, nil
}

func findTrackerScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting(
		filepath.Join("scripts", trackerScript),
		filepath.Join("..", "scripts", trackerScript),
		filepath.Join(execDir, "scripts", trackerScript),
		filepath.Join(home, ".handplay", "scripts", trackerScript),
	)
}

// findVenvPython looks for a virtual environment interpreter next to the
// working directory, the executable or the data directory.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)
	home, _ := os.UserHomeDir()

	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(home, ".handplay", "venv", "bin", "python"),
	)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
