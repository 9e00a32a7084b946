package e2e

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/handplay/internal/app"
	"github.com/ayusman/handplay/internal/capture"
	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/detector"
	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/playback"
	"github.com/ayusman/handplay/internal/player"
	"github.com/ayusman/handplay/internal/server"
	"github.com/ayusman/handplay/internal/store"
	"github.com/ayusman/handplay/internal/transport"
)

const waitFor = 2 * time.Second

// blankSource serves empty frames for any index.
type blankSource struct{}

func (blankSource) ReadAt(int) (*gocv.Mat, error) {
	mat := gocv.NewMat()
	return &mat, nil
}

func (blankSource) Close() error { return nil }

func blankOpener(path string) (player.Source, playback.Media, error) {
	return blankSource{}, playback.Media{Source: path, FPS: 30, TotalFrames: 300}, nil
}

// playerSide is the receiving process: transport server, dispatcher, player,
// journal and HTTP surface.
type playerSide struct {
	player   *player.Player
	machine  *playback.Machine
	store    *store.Store
	receiver *transport.Server
	http     *httptest.Server
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

func startPlayer(t *testing.T) *playerSide {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "handplay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	machine := playback.NewMachine(playback.SeekClamp)
	p := player.New(machine, blankOpener, player.Config{}, nil)
	require.NoError(t, p.Open("clip.mp4"))

	d := dispatch.New(p, dispatch.Config{}, nil)
	d.SetRecorder(store.NewJournal(st))

	receiver := transport.NewServer("127.0.0.1:0", func(c command.Command) {
		d.Submit(c, dispatch.SourceNetwork)
	}, nil)
	require.NoError(t, receiver.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	ps := &playerSide{player: p, machine: machine, store: st, receiver: receiver, cancel: cancel}
	ps.wg.Add(2)
	go func() { defer ps.wg.Done(); d.Run(ctx) }()
	go func() { defer ps.wg.Done(); receiver.Serve(ctx) }()

	ps.http = httptest.NewServer(server.New(server.Config{State: machine, Media: p, Commands: d, Store: st}, nil))
	t.Cleanup(ps.stop)
	return ps
}

func (ps *playerSide) stop() {
	ps.once.Do(func() {
		ps.cancel()
		ps.wg.Wait()
		ps.http.Close()
	})
}

// controllerSide is the sending process minus the camera: hands are fed to
// the app directly.
type controllerSide struct {
	app        *app.App
	client     *transport.Client
	dispatcher *dispatch.Dispatcher
	cancel     context.CancelFunc
	done       chan struct{}
}

func startController(t *testing.T, addr string) *controllerSide {
	t.Helper()

	client := transport.NewClient(transport.ClientConfig{
		Addr:         addr,
		DialTimeout:  time.Second,
		WriteTimeout: 500 * time.Millisecond,
	}, nil)
	require.NoError(t, client.Connect(context.Background()))

	classifier, err := gesture.NewClassifier(gesture.RulesCanonical, gesture.Params{
		ThumbReference:          gesture.ThumbIP,
		OkayThreshold:           0.05,
		PointDeadzone:           0.05,
		FistRequiresThumbCurled: true,
	}, gesture.TieBreakFirst)
	require.NoError(t, err)

	d := dispatch.New(client, dispatch.Config{}, nil)
	a, err := app.New(app.Config{
		Camera:     capture.NewMockCamera(nil, false),
		Detector:   detector.NewMockDetector(),
		Classifier: classifier,
		Gate:       gesture.NewGate(gesture.DefaultCooldown),
		Dispatcher: d,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cs := &controllerSide{app: a, client: client, dispatcher: d, cancel: cancel, done: make(chan struct{})}
	go func() { defer close(cs.done); d.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-cs.done
		client.Close()
	})
	return cs
}

func (cs *controllerSide) show(t *testing.T, hand detector.HandLandmarks, at time.Time, want gesture.Gesture) {
	t.Helper()
	got := cs.app.ProcessHands([]detector.HandLandmarks{hand}, at)
	require.Equal(t, want, got)
}

func getState(t *testing.T, url string) playback.State {
	t.Helper()
	resp, err := http.Get(url + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s playback.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func TestE2E_GesturesDrivePlayerOverTCP(t *testing.T) {
	ps := startPlayer(t)
	cs := startController(t, ps.receiver.Addr().String())
	t0 := time.Unix(1_700_000_000, 0)

	t.Run("ThumbsUpPlays", func(t *testing.T) {
		cs.show(t, detector.ThumbsUpLandmarks(), t0, gesture.ThumbsUp)
		require.Eventually(t, func() bool {
			return ps.machine.Snapshot().Status == playback.Playing
		}, waitFor, 10*time.Millisecond)
	})

	t.Run("CooldownSuppressesRepeat", func(t *testing.T) {
		cs.show(t, detector.FistLandmarks(), t0.Add(time.Second), gesture.None)
	})

	t.Run("PointRightSeeksAndClamps", func(t *testing.T) {
		cs.show(t, detector.PointingLandmarks(0.2), t0.Add(3*time.Second), gesture.PointRight)
		require.Eventually(t, func() bool {
			return ps.machine.Snapshot().Position == 299
		}, waitFor, 10*time.Millisecond)
	})

	t.Run("PeaceMutes", func(t *testing.T) {
		cs.show(t, detector.PeaceLandmarks(), t0.Add(6*time.Second), gesture.Peace)
		require.Eventually(t, func() bool {
			return ps.machine.Snapshot().Muted
		}, waitFor, 10*time.Millisecond)
	})

	t.Run("FistPauses", func(t *testing.T) {
		cs.show(t, detector.FistLandmarks(), t0.Add(9*time.Second), gesture.Fist)
		require.Eventually(t, func() bool {
			return ps.machine.Snapshot().Status == playback.Paused
		}, waitFor, 10*time.Millisecond)
	})

	t.Run("StateOverHTTP", func(t *testing.T) {
		s := getState(t, ps.http.URL)
		assert.Equal(t, playback.Paused, s.Status)
		assert.True(t, s.Muted)
		assert.Equal(t, 299, s.Position)
		assert.Equal(t, "clip.mp4", s.Source)
	})

	t.Run("Journal", func(t *testing.T) {
		require.Eventually(t, func() bool {
			n, err := ps.store.Events().Count(context.Background())
			return err == nil && n == 4
		}, waitFor, 10*time.Millisecond)

		events, err := ps.store.Events().Recent(context.Background(), 10)
		require.NoError(t, err)
		for _, ev := range events {
			assert.Equal(t, "network", ev.Source)
			assert.Equal(t, "applied", ev.Outcome)
		}
	})

	t.Run("PlayerGoneMarksTransportUnavailable", func(t *testing.T) {
		ps.stop()

		// The first write after the peer closes may still succeed locally.
		at := t0.Add(12 * time.Second)
		require.Eventually(t, func() bool {
			at = at.Add(3 * time.Second)
			cs.app.ProcessHands([]detector.HandLandmarks{detector.OkayLandmarks()}, at)
			time.Sleep(20 * time.Millisecond)
			return cs.dispatcher.Unavailable()
		}, 5*time.Second, 50*time.Millisecond)
		assert.False(t, cs.client.Connected())
	})
}

func TestE2E_LegacyUnframedSender(t *testing.T) {
	ps := startPlayer(t)

	conn, err := net.Dial("tcp", ps.receiver.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// No delimiters, and a seek split across two writes.
	_, err = conn.Write([]byte("PLAYSEEK_1"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte("0PAUSE"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := ps.machine.Snapshot()
		return s.Status == playback.Paused && s.Position == 299
	}, waitFor, 10*time.Millisecond)
}
