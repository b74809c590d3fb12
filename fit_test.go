package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainScale(t *testing.T) {
	t.Parallel()

	cropArea := Size{Width: 300, Height: 300}

	tests := []struct {
		name string
		img  ImageSize
		want float64
	}{
		{
			name: "landscape",
			img:  ImageSize{Width: 4000, Height: 3000},
			want: 0.075, // 300/4000, width is the constraining axis
		},
		{
			name: "portrait",
			img:  ImageSize{Width: 3000, Height: 4000},
			want: 0.075,
		},
		{
			name: "landscape rotated 90 behaves like portrait",
			img:  ImageSize{Width: 4000, Height: 3000, Rotation: 90},
			want: 0.075,
		},
		{
			name: "square upscaled",
			img:  ImageSize{Width: 100, Height: 100},
			want: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := containScale(tt.img, cropArea)
			require.NoError(t, err)
			require.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestContainScaleInvalidDimensions(t *testing.T) {
	t.Parallel()

	_, err := containScale(ImageSize{Width: 0, Height: 3000}, Size{Width: 300, Height: 300})
	require.ErrorIs(t, err, ErrInvalidImageDimensions)

	_, err = containScale(ImageSize{}, Size{Width: 300, Height: 300})
	require.ErrorIs(t, err, ErrInvalidImageDimensions)
}

func TestCoverScale(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	img := ImageSize{Width: 4000, Height: 3000}
	contain, err := containScale(img, Size{Width: 300, Height: 300})
	r.NoError(err)

	// A display box taller than the image's aspect forces a larger scale.
	cover, err := coverScale(contain, img, Size{Width: 400, Height: 300})
	r.NoError(err)
	r.InDelta(0.1, cover, 1e-6)

	// Cover never drops below contain.
	cover, err = coverScale(contain, img, Size{Width: 10, Height: 10})
	r.NoError(err)
	r.Equal(contain, cover)
}

func TestComputeFit(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	img := ImageSize{Width: 4000, Height: 3000}
	cropArea := Size{Width: 300, Height: 300}

	fit, err := ComputeFit(img, cropArea, cropArea, ResizeContain)
	r.NoError(err)
	r.InDelta(0.075, fit.MinZoom, 1e-6)
	r.Equal(fit.MinZoom, fit.InitialScale)

	fit, err = ComputeFit(img, cropArea, Size{Width: 400, Height: 300}, ResizeCover)
	r.NoError(err)
	r.InDelta(0.075, fit.MinZoom, 1e-6)
	r.InDelta(0.1, fit.InitialScale, 1e-6)
	r.LessOrEqual(fit.MinZoom, fit.InitialScale)
}
