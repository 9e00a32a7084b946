// Package command defines player commands, the gesture mapping and the text
// tokens used on the wire.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayusman/handplay/internal/gesture"
)

// Kind enumerates the player operations.
type Kind int

const (
	Play Kind = iota + 1
	Pause
	SeekForward
	SeekBackward
	ToggleMute
	Restart
)

func (k Kind) String() string {
	switch k {
	case Play:
		return "play"
	case Pause:
		return "pause"
	case SeekForward:
		return "seek_forward"
	case SeekBackward:
		return "seek_backward"
	case ToggleMute:
		return "toggle_mute"
	case Restart:
		return "restart"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DefaultSeekSeconds is the jump applied by the pointing gestures.
const DefaultSeekSeconds = 10

// Wire tokens.
const (
	TokenPlay    = "PLAY"
	TokenPause   = "PAUSE"
	TokenMute    = "MUTE"
	TokenRestart = "RESTART"
	SeekPrefix   = "SEEK_"
)

// Keywords lists the fixed tokens that carry no argument.
var Keywords = []string{TokenPlay, TokenPause, TokenMute, TokenRestart}

// SeekTokens lists the seek tokens the pointing gestures produce.
var SeekTokens = []string{
	SeekPrefix + strconv.Itoa(DefaultSeekSeconds),
	SeekPrefix + strconv.Itoa(-DefaultSeekSeconds),
}

// ErrUnknownToken is returned by Parse for text outside the vocabulary.
var ErrUnknownToken = errors.New("unknown command token")

// Command is one player operation. Seconds is only meaningful for seeks and
// is always positive; the direction lives in Kind.
type Command struct {
	Kind    Kind `json:"kind"`
	Seconds int  `json:"seconds,omitempty"`
}

// Seek returns a forward seek for positive seconds and a backward seek for
// negative ones.
func Seek(seconds int) Command {
	if seconds < 0 {
		return Command{Kind: SeekBackward, Seconds: -seconds}
	}
	return Command{Kind: SeekForward, Seconds: seconds}
}

// Delta returns the signed seek offset in seconds, zero for non-seeks.
func (c Command) Delta() int {
	switch c.Kind {
	case SeekForward:
		return c.Seconds
	case SeekBackward:
		return -c.Seconds
	}
	return 0
}

func (c Command) String() string {
	if c.Kind == SeekForward || c.Kind == SeekBackward {
		return fmt.Sprintf("%s(%ds)", c.Kind, c.Seconds)
	}
	return c.Kind.String()
}

// Token encodes the command for the wire.
func (c Command) Token() string {
	switch c.Kind {
	case Play:
		return TokenPlay
	case Pause:
		return TokenPause
	case ToggleMute:
		return TokenMute
	case Restart:
		return TokenRestart
	case SeekForward, SeekBackward:
		return SeekPrefix + strconv.Itoa(c.Delta())
	}
	return ""
}

// Parse decodes a wire token. Surrounding whitespace is ignored.
func Parse(token string) (Command, error) {
	token = strings.TrimSpace(token)
	switch token {
	case TokenPlay:
		return Command{Kind: Play}, nil
	case TokenPause:
		return Command{Kind: Pause}, nil
	case TokenMute:
		return Command{Kind: ToggleMute}, nil
	case TokenRestart:
		return Command{Kind: Restart}, nil
	}

	if arg, ok := strings.CutPrefix(token, SeekPrefix); ok {
		seconds, err := strconv.Atoi(arg)
		if err != nil || seconds == 0 {
			return Command{}, fmt.Errorf("%w: %q", ErrUnknownToken, token)
		}
		return Seek(seconds), nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownToken, token)
}

// FromGesture maps a gesture to its command. None has no command.
func FromGesture(g gesture.Gesture, seekSeconds int) (Command, bool) {
	if seekSeconds <= 0 {
		seekSeconds = DefaultSeekSeconds
	}

	switch g {
	case gesture.Fist:
		return Command{Kind: Pause}, true
	case gesture.ThumbsUp:
		return Command{Kind: Play}, true
	case gesture.Peace:
		return Command{Kind: ToggleMute}, true
	case gesture.Okay:
		return Command{Kind: Restart}, true
	case gesture.PointRight:
		return Seek(seekSeconds), true
	case gesture.PointLeft:
		return Seek(-seekSeconds), true
	}
	return Command{}, false
}
