package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeAtMinZoom(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	img := ImageSize{Width: 4000, Height: 3000}
	cropArea := Size{Width: 300, Height: 300}
	minZoom := 0.075

	// At the contain baseline the constraining axis has no slack at all.
	r.Equal(Range{}, RangeX(minZoom, img, cropArea, minZoom))

	// The other axis renders at 3000*0.075 = 225 < 300, so it pins to
	// center as well.
	r.Equal(Range{}, RangeY(minZoom, img, cropArea, minZoom))
}

func TestRangeZoomedIn(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	img := ImageSize{Width: 4000, Height: 3000}
	cropArea := Size{Width: 300, Height: 300}
	minZoom := 0.075

	// Doubling the scale renders the image at 600x450. Horizontal slack is
	// (600-300)/2 = 150 screen pixels, i.e. 1000 image-local units.
	x := RangeX(0.15, img, cropArea, minZoom)
	r.InDelta(-1000, x.Min, 1e-6)
	r.InDelta(1000, x.Max, 1e-6)

	// Vertical slack is (450-300)/2 = 75 pixels, 500 local units.
	y := RangeY(0.15, img, cropArea, minZoom)
	r.InDelta(-500, y.Min, 1e-6)
	r.InDelta(500, y.Max, 1e-6)
}

func TestRangeSymmetry(t *testing.T) {
	t.Parallel()

	img := ImageSize{Width: 4000, Height: 3000}
	cropArea := Size{Width: 300, Height: 300}
	minZoom := 0.075

	for _, scale := range []float64{0.08, 0.1, 0.15, 0.3, 1, 3} {
		x := RangeX(scale, img, cropArea, minZoom)
		y := RangeY(scale, img, cropArea, minZoom)
		require.Equal(t, -x.Min, x.Max, "scale %g", scale)
		require.Equal(t, -y.Min, y.Max, "scale %g", scale)
		require.LessOrEqual(t, x.Min, x.Max)
		require.LessOrEqual(t, y.Min, y.Max)
	}
}

func TestRangeRotatedImage(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	// Rotated 90 degrees the image presents as 3000x4000, so the axes trade
	// places compared to TestRangeZoomedIn.
	img := ImageSize{Width: 4000, Height: 3000, Rotation: 90}
	cropArea := Size{Width: 300, Height: 300}
	minZoom := 0.075

	x := RangeX(0.15, img, cropArea, minZoom)
	r.InDelta(-500, x.Min, 1e-6)
	r.InDelta(500, x.Max, 1e-6)

	y := RangeY(0.15, img, cropArea, minZoom)
	r.InDelta(-1000, y.Min, 1e-6)
	r.InDelta(1000, y.Max, 1e-6)
}

func TestRangeBelowMinZoom(t *testing.T) {
	t.Parallel()

	// Transient state below the contain baseline: the rendered extent is
	// smaller than the crop area, both axes pin to center.
	img := ImageSize{Width: 4000, Height: 3000}
	cropArea := Size{Width: 300, Height: 300}

	require.Equal(t, Range{}, RangeX(0.05, img, cropArea, 0.075))
	require.Equal(t, Range{}, RangeY(0.05, img, cropArea, 0.075))
}
