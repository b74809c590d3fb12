package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size is a width/height pair. Depending on context the unit is either
// source-image pixels or on-screen pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) IsPositive() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// UnmarshalText parses a "WIDTHxHEIGHT" string, e.g. "300x300".
// This lets a Size be used directly as a CLI flag value.
func (s *Size) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), "x", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", text)
	}
	width, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return fmt.Errorf("invalid width in %q: %w", text, err)
	}
	height, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return fmt.Errorf("invalid height in %q: %w", text, err)
	}
	s.Width = width
	s.Height = height
	return nil
}

// Point is a 2D offset.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Range is a closed [Min, Max] interval of legal values for one
// translation axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Clamp returns v limited to the interval.
func (r Range) Clamp(v float64) float64 {
	return clamp(v, r.Min, r.Max)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ImageSize is the natural (as-decoded) size of a source image plus the
// rotation from its orientation metadata. Rotation is one of 0, 90, 180
// or 270 degrees.
type ImageSize struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// Loaded reports whether the image has usable dimensions.
func (s ImageSize) Loaded() bool {
	return s.Width > 0 && s.Height > 0
}

// EffectiveSize returns the size the image occupies once its rotation is
// applied: width and height swap at 90 and 270 degrees. Every calculation
// in this package goes through this helper rather than swapping inline.
func (s ImageSize) EffectiveSize() Size {
	if s.Rotation == 90 || s.Rotation == 270 {
		return Size{Width: s.Height, Height: s.Width}
	}
	return Size{Width: s.Width, Height: s.Height}
}

// alphaHex converts an opacity in [0, 1] to a two-digit hex alpha suffix
// for an RGB color string. Out-of-range values are clamped.
func alphaHex(opacity float64) string {
	alpha := int(math.Round(clamp(opacity, 0, 1) * 255))
	return fmt.Sprintf("%02x", alpha)
}
