package main

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidImageDimensions is returned when a calculation needs image
	// dimensions that are zero or not yet known (image still loading).
	ErrInvalidImageDimensions = errors.New("image dimensions are zero or not loaded")
	// ErrInvalidQuality is returned when an output quality factor falls
	// outside [0, 1].
	ErrInvalidQuality = errors.New("quality must be within [0, 1]")
	// ErrInvalidConfiguration is returned by NewCropper for configurations
	// that can never produce a valid crop.
	ErrInvalidConfiguration = errors.New("invalid cropper configuration")
)

// ResizeMode selects the initial framing of the image inside the crop area.
type ResizeMode string

const (
	// ResizeContain starts with the whole image visible inside the crop area.
	ResizeContain ResizeMode = "contain"
	// ResizeCover starts with the image filling the whole display box,
	// cropping whatever overflows.
	ResizeCover ResizeMode = "cover"
)

// Fit is the result of fitting an image into a crop area.
type Fit struct {
	// MinZoom is the contain scale: the smallest scale at which the image
	// still fully spans the crop area. It is the floor for interactive zoom.
	MinZoom float64 `json:"min_zoom"`
	// InitialScale is the scale the cropper starts at, MinZoom for
	// ResizeContain or the cover scale for ResizeCover.
	InitialScale float64 `json:"initial_scale"`
}

// containScale returns the unique scale at which the rotation-adjusted
// image touches the crop area on its constraining axis while staying fully
// inside on the other.
func containScale(img ImageSize, cropArea Size) (float64, error) {
	eff := img.EffectiveSize()
	if !eff.IsPositive() {
		return 0, fmt.Errorf("%w: %gx%g", ErrInvalidImageDimensions, img.Width, img.Height)
	}
	return math.Min(cropArea.Width/eff.Width, cropArea.Height/eff.Height), nil
}

// coverScale returns the smallest scale, never below contain, at which the
// rotation-adjusted image fully covers the display box. The display box may
// be larger than the crop area but never smaller.
func coverScale(contain float64, img ImageSize, display Size) (float64, error) {
	eff := img.EffectiveSize()
	if !eff.IsPositive() {
		return 0, fmt.Errorf("%w: %gx%g", ErrInvalidImageDimensions, img.Width, img.Height)
	}
	cover := math.Max(display.Width/eff.Width, display.Height/eff.Height)
	return math.Max(contain, cover), nil
}

// ComputeFit fits an image into a crop area under the given resize mode.
// display is the box the image is rendered into; pass the crop area itself
// when the two coincide.
func ComputeFit(img ImageSize, cropArea, display Size, mode ResizeMode) (Fit, error) {
	contain, err := containScale(img, cropArea)
	if err != nil {
		return Fit{}, err
	}

	initial := contain
	if mode == ResizeCover {
		initial, err = coverScale(contain, img, display)
		if err != nil {
			return Fit{}, err
		}
	}

	return Fit{MinZoom: contain, InitialScale: initial}, nil
}
