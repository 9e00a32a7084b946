package gesture

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handplay/internal/detector"
)

func newCanonical(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(RulesCanonical, DefaultParams(), TieBreakFirst)
	require.NoError(t, err)
	return c
}

func TestClassifier_Canonical(t *testing.T) {
	c := newCanonical(t)

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want Gesture
	}{
		{name: "fist", hand: detector.FistLandmarks(), want: Fist},
		// the fist rule is checked first and ignores the thumb
		{name: "thumbs up resolves to fist", hand: detector.ThumbsUpLandmarks(), want: Fist},
		{name: "peace", hand: detector.PeaceLandmarks(), want: Peace},
		{name: "okay", hand: detector.OkayLandmarks(), want: Okay},
		{name: "point right", hand: detector.PointingLandmarks(0.19), want: PointRight},
		{name: "point left", hand: detector.PointingLandmarks(-0.19), want: PointLeft},
		{name: "near vertical point inside deadzone", hand: detector.PointingLandmarks(0.03), want: None},
		{name: "open palm", hand: detector.OpenPalmLandmarks(), want: None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(&tt.hand))
		})
	}
}

func TestClassifier_AllTipsBelowJointsIsFist(t *testing.T) {
	c := newCanonical(t)
	rng := rand.New(rand.NewSource(42))

	pairs := [][2]detector.Joint{
		{detector.ThumbTip, detector.ThumbIP},
		{detector.IndexTip, detector.IndexPIP},
		{detector.MiddleTip, detector.MiddlePIP},
		{detector.RingTip, detector.RingPIP},
		{detector.PinkyTip, detector.PinkyPIP},
	}

	for i := 0; i < 200; i++ {
		var h detector.HandLandmarks
		for j := range h.Points {
			h.Points[j] = detector.Point3D{X: rng.Float64(), Y: rng.Float64() * 0.5}
		}
		for _, p := range pairs {
			h.Points[p[0]].Y = h.Points[p[1]].Y + 0.01 + rng.Float64()*0.4
		}

		require.Equal(t, Fist, c.Classify(&h), "iteration %d", i)
	}
}

func TestClassifier_FistRequiresThumbCurled(t *testing.T) {
	params := DefaultParams()
	params.FistRequiresThumbCurled = true
	c, err := NewClassifier(RulesCanonical, params, TieBreakFirst)
	require.NoError(t, err)

	thumbsUp := detector.ThumbsUpLandmarks()
	fist := detector.FistLandmarks()
	assert.Equal(t, ThumbsUp, c.Classify(&thumbsUp))
	assert.Equal(t, Fist, c.Classify(&fist))
}

func TestClassifier_Classic(t *testing.T) {
	c, err := NewClassifier(RulesClassic, DefaultParams(), TieBreakFirst)
	require.NoError(t, err)

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want Gesture
	}{
		{name: "fist", hand: detector.FistLandmarks(), want: Fist},
		{name: "thumbs up", hand: detector.ThumbsUpLandmarks(), want: Fist},
		{name: "point right", hand: detector.PointingLandmarks(0.19), want: PointRight},
		// no deadzone: any rightward lean counts, straight up reads left
		{name: "slight lean right", hand: detector.PointingLandmarks(0.01), want: PointRight},
		{name: "straight up", hand: detector.PointingLandmarks(0), want: PointLeft},
		// peace has the index up, so the classic table reads it as a point
		{name: "peace reads as point", hand: detector.PeaceLandmarks(), want: PointRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(&tt.hand))
		})
	}

	t.Run("thumb up with middle raised is play", func(t *testing.T) {
		h := detector.ThumbsUpLandmarks()
		h.Points[detector.MiddleTip].Y = 0.3
		assert.Equal(t, ThumbsUp, c.Classify(&h))
	})
}

func TestClassifier_ThumbReference(t *testing.T) {
	// Thumb tip between IP and MCP: extended against MCP, curled against IP.
	h := detector.PeaceLandmarks()
	h.Points[detector.ThumbMCP].Y = 0.70
	h.Points[detector.ThumbIP].Y = 0.60
	h.Points[detector.ThumbTip].Y = 0.65

	assert.False(t, Extract(&h, ThumbIP).Extended(Thumb))
	assert.True(t, Extract(&h, ThumbMCP).Extended(Thumb))
}

func TestClassifier_ClassifyHands(t *testing.T) {
	palm := detector.OpenPalmLandmarks()
	peace := detector.PeaceLandmarks()
	fist := detector.FistLandmarks()
	hands := []detector.HandLandmarks{palm, peace, fist}

	t.Run("first wins", func(t *testing.T) {
		c := newCanonical(t)
		g, at := c.ClassifyHands(hands)
		assert.Equal(t, Peace, g)
		assert.Equal(t, 1, at)
	})

	t.Run("last wins", func(t *testing.T) {
		c, err := NewClassifier(RulesCanonical, DefaultParams(), TieBreakLast)
		require.NoError(t, err)
		g, at := c.ClassifyHands(hands)
		assert.Equal(t, Fist, g)
		assert.Equal(t, 2, at)
	})

	t.Run("no match", func(t *testing.T) {
		c := newCanonical(t)
		g, at := c.ClassifyHands([]detector.HandLandmarks{palm})
		assert.Equal(t, None, g)
		assert.Equal(t, -1, at)

		g, at = c.ClassifyHands(nil)
		assert.Equal(t, None, g)
		assert.Equal(t, -1, at)
	})
}

func TestNewClassifier_Errors(t *testing.T) {
	_, err := NewClassifier("v9", DefaultParams(), TieBreakFirst)
	assert.ErrorContains(t, err, "unknown rule table")

	_, err = NewClassifier(RulesCanonical, DefaultParams(), TieBreak("random"))
	assert.ErrorContains(t, err, "unknown tie-break")

	c, err := NewClassifier(RulesClassic, DefaultParams(), "")
	require.NoError(t, err)
	assert.Equal(t, RulesClassic, c.TableName())
	assert.Equal(t, None, c.Classify(nil))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, []string{RulesCanonical, RulesClassic}, TableNames())

	rules, err := Table(RulesCanonical)
	require.NoError(t, err)
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"fist", "thumbs_up", "peace", "okay", "point"}, names)
}
