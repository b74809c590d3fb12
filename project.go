package main

import (
	"fmt"
	"math"
)

// CropRect is the final crop rectangle in source-image pixel space, ready
// to hand to a pixel cropper. Offset is the rectangle's top-left corner,
// Size its extent; DisplaySize is Size multiplied by the requested output
// quality and rounded to whole pixels.
//
// Coordinates are expressed in the rotation-adjusted (effective) pixel
// space, i.e. against the image as it is displayed after its orientation
// metadata has been applied.
type CropRect struct {
	Offset      Point `json:"offset"`
	Size        Size  `json:"size"`
	DisplaySize Size  `json:"display_size"`
}

// ComputeCropRect projects the live transform back onto the source image:
// it answers "which source pixels are currently framed by the crop area".
// quality in [0, 1] scales the output size; 0 is a valid boundary value.
//
// The projection is deterministic: identical inputs produce bit-identical
// rectangles.
func ComputeCropRect(t Transform, img ImageSize, cropArea Size, minZoom, quality float64) (CropRect, error) {
	if !img.Loaded() {
		return CropRect{}, fmt.Errorf("%w: %gx%g", ErrInvalidImageDimensions, img.Width, img.Height)
	}
	if quality < 0 || quality > 1 {
		return CropRect{}, fmt.Errorf("%w: got %g", ErrInvalidQuality, quality)
	}

	eff := img.EffectiveSize()

	// Rendered extent at the current scale. Clamped to the crop area so the
	// visible crop never exceeds what is actually rendered; the clamp only
	// matters transiently below minZoom.
	scaledWidth := math.Max(scaledExtent(eff.Width, t.Scale, minZoom), cropArea.Width)
	scaledHeight := math.Max(scaledExtent(eff.Height, t.Scale, minZoom), cropArea.Height)

	// Ratio of rendered pixels to source pixels.
	multiplier := scaledWidth / eff.Width

	// Translation in rendered pixels: signed offset of the image center
	// from the crop-area center.
	translateX := t.TranslateX * t.Scale
	translateY := t.TranslateY * t.Scale

	// Slack in rendered pixels, used to move from center-relative to
	// top-left-relative coordinates. A positive translation moves the image
	// right/down, so the crop origin moves towards the image's top-left.
	maxTranslateX := (scaledWidth - cropArea.Width) / 2
	maxTranslateY := (scaledHeight - cropArea.Height) / 2

	size := Size{
		Width:  cropArea.Width / multiplier,
		Height: cropArea.Height / multiplier,
	}
	offset := Point{
		X: (maxTranslateX - translateX) / multiplier,
		Y: (maxTranslateY - translateY) / multiplier,
	}

	// The rectangle must land entirely within the effective pixel box.
	offset.X = clamp(offset.X, 0, math.Max(0, eff.Width-size.Width))
	offset.Y = clamp(offset.Y, 0, math.Max(0, eff.Height-size.Height))

	return CropRect{
		Offset: offset,
		Size:   size,
		DisplaySize: Size{
			Width:  math.Round(size.Width * quality),
			Height: math.Round(size.Height * quality),
		},
	}, nil
}
