package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handplay/internal/gesture"
)

func TestFromGesture(t *testing.T) {
	tests := []struct {
		gesture gesture.Gesture
		want    Command
		token   string
	}{
		{gesture.Fist, Command{Kind: Pause}, "PAUSE"},
		{gesture.ThumbsUp, Command{Kind: Play}, "PLAY"},
		{gesture.Peace, Command{Kind: ToggleMute}, "MUTE"},
		{gesture.Okay, Command{Kind: Restart}, "RESTART"},
		{gesture.PointRight, Command{Kind: SeekForward, Seconds: 10}, "SEEK_10"},
		{gesture.PointLeft, Command{Kind: SeekBackward, Seconds: 10}, "SEEK_-10"},
	}

	for _, tt := range tests {
		t.Run(tt.gesture.String(), func(t *testing.T) {
			cmd, ok := FromGesture(tt.gesture, DefaultSeekSeconds)
			require.True(t, ok)
			assert.Equal(t, tt.want, cmd)
			assert.Equal(t, tt.token, cmd.Token())
		})
	}

	t.Run("none has no command", func(t *testing.T) {
		_, ok := FromGesture(gesture.None, DefaultSeekSeconds)
		assert.False(t, ok)
	})

	t.Run("custom seek length", func(t *testing.T) {
		cmd, _ := FromGesture(gesture.PointLeft, 5)
		assert.Equal(t, -5, cmd.Delta())
		assert.Equal(t, "SEEK_-5", cmd.Token())

		cmd, _ = FromGesture(gesture.PointRight, 0)
		assert.Equal(t, DefaultSeekSeconds, cmd.Delta())
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		token   string
		want    Command
		wantErr bool
	}{
		{token: "PLAY", want: Command{Kind: Play}},
		{token: "PAUSE", want: Command{Kind: Pause}},
		{token: "MUTE", want: Command{Kind: ToggleMute}},
		{token: "RESTART", want: Command{Kind: Restart}},
		{token: "SEEK_10", want: Command{Kind: SeekForward, Seconds: 10}},
		{token: "SEEK_-10", want: Command{Kind: SeekBackward, Seconds: 10}},
		{token: " SEEK_30\n", want: Command{Kind: SeekForward, Seconds: 30}},
		{token: "SEEK_0", wantErr: true},
		{token: "SEEK_", wantErr: true},
		{token: "SEEK_ten", wantErr: true},
		{token: "play", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := Parse(tt.token)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownToken), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "seek_backward(10s)", Seek(-10).String())
	assert.Equal(t, "toggle_mute", Command{Kind: ToggleMute}.String())
	assert.Equal(t, "", Command{}.Token())
	assert.Equal(t, 0, Command{Kind: Play}.Delta())
}
