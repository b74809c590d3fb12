package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// PixelCropper executes a projected crop rectangle against the actual
// image bytes. Implementations work in the rotation-adjusted pixel space,
// matching the coordinates ComputeCropRect produces.
type PixelCropper interface {
	Crop(ctx context.Context, r io.Reader, w io.Writer, rect CropRect) error
}

// ImagingCropper is a PixelCropper backed by the disintegration/imaging
// library.
type ImagingCropper struct{}

// NewImagingCropper creates a new instance of ImagingCropper.
func NewImagingCropper() *ImagingCropper {
	return &ImagingCropper{}
}

// Crop reads an image from r, cuts out rect and writes the result to w as
// JPEG. Decoding applies the image's orientation metadata so the pixel
// space lines up with the effective space the rectangle was computed in.
// When the rectangle's display size differs from its source size, the cut
// is resized to the display size before encoding.
func (c *ImagingCropper) Crop(ctx context.Context, r io.Reader, w io.Writer, rect CropRect) error {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	x := int(math.Round(rect.Offset.X))
	y := int(math.Round(rect.Offset.Y))
	width := int(math.Round(rect.Size.Width))
	height := int(math.Round(rect.Size.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid crop dimensions: width=%d, height=%d", width, height)
	}

	bounds := src.Bounds()
	cropRect := image.Rect(x, y, x+width, y+height)

	// Rounding can push the rectangle a pixel over the edge.
	if !cropRect.In(bounds) {
		cropRect = cropRect.Intersect(bounds)
		if cropRect.Empty() {
			return fmt.Errorf("crop rectangle %v is outside image bounds %v", cropRect, bounds)
		}
	}

	out := imaging.Crop(src, cropRect)

	displayWidth := int(rect.DisplaySize.Width)
	displayHeight := int(rect.DisplaySize.Height)
	if displayWidth <= 0 || displayHeight <= 0 {
		return fmt.Errorf("invalid display dimensions: width=%d, height=%d", displayWidth, displayHeight)
	}
	if displayWidth != cropRect.Dx() || displayHeight != cropRect.Dy() {
		out = imaging.Resize(out, displayWidth, displayHeight, imaging.Lanczos)
	}

	return imaging.Encode(w, out, imaging.JPEG, imaging.JPEGQuality(90))
}
