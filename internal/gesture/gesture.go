// Package gesture turns hand landmarks into discrete, debounced gestures.
package gesture

import "fmt"

// Gesture is a classified hand pose. The zero value is None.
type Gesture int

const (
	None Gesture = iota
	Fist
	ThumbsUp
	Peace
	Okay
	PointRight
	PointLeft
)

var gestureNames = map[Gesture]string{
	None:       "none",
	Fist:       "fist",
	ThumbsUp:   "thumbs_up",
	Peace:      "peace",
	Okay:       "okay",
	PointRight: "point_right",
	PointLeft:  "point_left",
}

func (g Gesture) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return fmt.Sprintf("gesture(%d)", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}
