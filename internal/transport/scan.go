// Package transport carries player commands between the gesture controller
// and a networked player over TCP.
package transport

import (
	"bytes"

	"github.com/ayusman/handplay/internal/command"
)

// ScanTokens is a bufio.SplitFunc for command streams. Tokens are normally
// newline terminated, but unframed senders that concatenate tokens
// ("PLAYSEEK_10") or split one across writes are also accepted: the stream
// is cut at keyword boundaries, and a token that may still be growing is held
// back until more data or EOF arrives. A seek whose digits already form a
// complete token ("SEEK_10", "SEEK_5") is emitted at the end of the buffer;
// only a bare "SEEK_" or a prefix of a gesture seek ("SEEK_1") waits. Text
// that matches no keyword is returned up to the next whitespace so the caller
// can reject it.
func ScanTokens(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	if start == len(data) {
		return len(data), nil, nil
	}
	rest := data[start:]

	for _, kw := range command.Keywords {
		switch {
		case bytes.HasPrefix(rest, []byte(kw)):
			return start + len(kw), rest[:len(kw)], nil
		case !atEOF && isPartial(rest, kw):
			return start, nil, nil
		}
	}

	prefix := command.SeekPrefix
	switch {
	case bytes.HasPrefix(rest, []byte(prefix)):
		i := len(prefix)
		if i < len(rest) && rest[i] == '-' {
			i++
		}
		digits := i
		for i < len(rest) && isDigit(rest[i]) {
			i++
		}
		if i == len(rest) && !atEOF && (i == digits || seekGrowing(rest)) {
			return start, nil, nil
		}
		return start + i, rest[:i], nil
	case !atEOF && isPartial(rest, prefix):
		return start, nil, nil
	}

	end := bytes.IndexFunc(rest, func(r rune) bool { return r < 0x80 && isSpace(byte(r)) })
	if end < 0 {
		if !atEOF {
			return start, nil, nil
		}
		end = len(rest)
	}
	return start + end, rest[:end], nil
}

// seekGrowing reports whether tok is a proper prefix of a gesture seek token.
func seekGrowing(tok []byte) bool {
	for _, kw := range command.SeekTokens {
		if isPartial(tok, kw) {
			return true
		}
	}
	return false
}

// isPartial reports whether data is a proper prefix of kw.
func isPartial(data []byte, kw string) bool {
	return len(data) < len(kw) && kw[:len(data)] == string(data)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
