package scoring

import (
	"math"
	"testing"
)

func TestNormalizerToExternal(t *testing.T) {
	n := NewNormalizer(24, 2, 2)

	cases := []struct {
		internal float64
		want     float64
	}{
		{24, 2},
		{-24, -2},
		{0, 0},
		{12, 1},
		{3.6, 0.3},
		{1.234, 0.1},    // 0.10283 rounds to 0.10
		{-13.37, -1.11}, // -1.1141 rounds to -1.11
	}
	for _, c := range cases {
		if got := n.ToExternal(c.internal); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ToExternal(%v) = %v, want %v", c.internal, got, c.want)
		}
	}
}

func TestNormalizerRoundTrip(t *testing.T) {
	n := NewNormalizer(24, 2, 2)

	// Round trip loses at most half an external rounding step, scaled
	// back to internal units.
	maxLoss := 0.005 * 12
	for _, internal := range []float64{-24, -17.3, -1, 0, 0.004, 5.5, 23.999} {
		back := n.ToInternal(n.ToExternal(internal))
		if math.Abs(back-internal) > maxLoss+1e-9 {
			t.Errorf("round trip %v -> %v drifted by %v", internal, back, math.Abs(back-internal))
		}
	}
}

func TestNormalizerScale(t *testing.T) {
	n := NewNormalizer(24, 2, 2)
	if got := n.Scale(); got != [2]float64{-2, 2} {
		t.Errorf("Scale() = %v, want [-2 2]", got)
	}
}
