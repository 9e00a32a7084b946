package server

import (
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FrameHub holds the latest rendered video frame as JPEG and fans it out to
// MJPEG viewers. It implements player.FrameSink.
type FrameHub struct {
	logger *zap.Logger

	mu     sync.Mutex
	latest []byte
	subs   map[chan []byte]struct{}
}

// NewFrameHub creates an empty hub.
func NewFrameHub(logger *zap.Logger) *FrameHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameHub{logger: logger, subs: make(map[chan []byte]struct{})}
}

// PublishFrame encodes frame as JPEG and publishes it. Encoding is skipped
// while nobody is watching.
func (h *FrameHub) PublishFrame(frame *gocv.Mat) {
	if h.viewers() == 0 || frame == nil || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		h.logger.Debug("failed to encode frame", zap.Error(err))
		return
	}
	defer buf.Close()

	h.Publish(append([]byte(nil), buf.GetBytes()...))
}

// Publish fans an encoded JPEG out to every viewer. Slow viewers skip frames.
func (h *FrameHub) Publish(jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = jpeg
	for ch := range h.subs {
		select {
		case ch <- jpeg:
		default:
			// drop the stale frame in favour of the new one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- jpeg:
			default:
			}
		}
	}
}

// Subscribe registers a viewer. The returned cancel func must be called.
func (h *FrameHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.latest != nil {
		ch <- h.latest
	}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *FrameHub) viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *FrameHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	frames, cancel := h.Subscribe()
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case jpeg := <-frames:
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
				return
			}
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
