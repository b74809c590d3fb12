package main

import (
	"fmt"
)

// Transform is the live pan/zoom state. Scale is a unitless multiplier
// relative to the contain baseline; TranslateX/Y are offsets of the image
// center from the crop-area center, in image-local (pre-scale) units.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Shape of the crop window. Purely cosmetic: the math is identical for
// both, circle only changes how the overlay is drawn.
type Shape string

const (
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
)

// Overlay describes the dimmed mask drawn around the crop window.
type Overlay struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// MaskColor returns the overlay color with its opacity encoded as a hex
// alpha suffix, e.g. "#000000b3".
func (o Overlay) MaskColor() string {
	return o.Color + alphaHex(o.Opacity)
}

// Config configures a Cropper. CropArea is the fixed crop window;
// DisplaySize is the box the image is rendered into and defaults to
// CropArea when zero.
type Config struct {
	CropArea    Size       `json:"crop_area"`
	DisplaySize Size       `json:"display_size"`
	MaxZoom     float64    `json:"max_zoom"`
	ResizeMode  ResizeMode `json:"resize_mode"`
	Shape       Shape      `json:"shape"`
	Quality     float64    `json:"quality"`
	Overlay     Overlay    `json:"overlay"`
}

func (c Config) validate() error {
	if !c.CropArea.IsPositive() {
		return fmt.Errorf("%w: crop area %s must have positive dimensions", ErrInvalidConfiguration, c.CropArea)
	}
	if c.MaxZoom < 1 {
		return fmt.Errorf("%w: max zoom %g must be >= 1", ErrInvalidConfiguration, c.MaxZoom)
	}
	if c.DisplaySize != (Size{}) &&
		(c.DisplaySize.Width < c.CropArea.Width || c.DisplaySize.Height < c.CropArea.Height) {
		return fmt.Errorf("%w: display size %s is smaller than crop area %s",
			ErrInvalidConfiguration, c.DisplaySize, c.CropArea)
	}
	return nil
}

// Cropper owns the only mutable copy of the transform state. The caller
// feeds it normalized gesture deltas; the cropper keeps the state legal by
// re-deriving the pan ranges on every update. It is not safe for
// concurrent use: the interactive loop is expected to be its sole owner.
type Cropper struct {
	cfg     Config
	img     ImageSize
	minZoom float64
	t       Transform
	loaded  bool
}

// NewCropper validates the configuration eagerly; a config that can never
// produce a valid crop fails construction instead of a later commit.
func NewCropper(cfg Config) (*Cropper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.DisplaySize == (Size{}) {
		cfg.DisplaySize = cfg.CropArea
	}
	if cfg.ResizeMode == "" {
		cfg.ResizeMode = ResizeContain
	}
	if cfg.Shape == "" {
		cfg.Shape = ShapeRect
	}
	return &Cropper{cfg: cfg}, nil
}

func (c *Cropper) Config() Config { return c.cfg }

// SetImage installs a freshly loaded image, computes its contain baseline
// and resets the transform to the centered initial framing.
func (c *Cropper) SetImage(img ImageSize) error {
	fit, err := ComputeFit(img, c.cfg.CropArea, c.cfg.DisplaySize, c.cfg.ResizeMode)
	if err != nil {
		return err
	}
	c.img = img
	c.minZoom = fit.MinZoom
	c.t = Transform{Scale: fit.InitialScale}
	c.loaded = true
	return nil
}

func (c *Cropper) Image() ImageSize     { return c.img }
func (c *Cropper) MinZoom() float64     { return c.minZoom }
func (c *Cropper) Transform() Transform { return c.t }

// RangeX returns the legal horizontal translation interval at the current
// scale, RangeY the vertical one.
func (c *Cropper) RangeX() Range {
	return RangeX(c.t.Scale, c.img, c.cfg.CropArea, c.minZoom)
}

func (c *Cropper) RangeY() Range {
	return RangeY(c.t.Scale, c.img, c.cfg.CropArea, c.minZoom)
}

// Pan applies a pan gesture delta, given in on-screen pixels. The delta is
// converted to image-local units and the result clamped so the image edges
// never move inside the crop window.
func (c *Cropper) Pan(dx, dy float64) Transform {
	if !c.loaded {
		return c.t
	}
	c.t.TranslateX = c.RangeX().Clamp(c.t.TranslateX + dx/c.t.Scale)
	c.t.TranslateY = c.RangeY().Clamp(c.t.TranslateY + dy/c.t.Scale)
	return c.t
}

// Pinch applies a pinch gesture's scale delta. The scale is clamped to
// [minZoom, maxZoom] and the translation re-clamped to the ranges of the
// new scale.
func (c *Cropper) Pinch(scaleDelta float64) Transform {
	if !c.loaded {
		return c.t
	}
	c.t.Scale = clamp(c.t.Scale*scaleDelta, c.minZoom, c.cfg.MaxZoom)
	c.t.TranslateX = c.RangeX().Clamp(c.t.TranslateX)
	c.t.TranslateY = c.RangeY().Clamp(c.t.TranslateY)
	return c.t
}

// SetTransform installs a transform snapshot taken elsewhere (a batch
// operation or an API request), clamping it onto legal state.
func (c *Cropper) SetTransform(t Transform) (Transform, error) {
	if !c.loaded {
		return Transform{}, fmt.Errorf("%w: no image set", ErrInvalidImageDimensions)
	}
	c.t = t
	c.t, _ = settle(c.t, c.img, c.cfg.CropArea, c.minZoom, c.cfg.MaxZoom)
	return c.t, nil
}

// Release ends a gesture and applies the settle correction. It returns the
// settled transform and whether a correction fired; the caller animates
// the difference.
func (c *Cropper) Release() (Transform, bool) {
	if !c.loaded {
		return c.t, false
	}
	settled, corrected := settle(c.t, c.img, c.cfg.CropArea, c.minZoom, c.cfg.MaxZoom)
	c.t = settled
	return settled, corrected
}

// CropRect projects the current transform into a source-pixel crop
// rectangle at the given output quality.
func (c *Cropper) CropRect(quality float64) (CropRect, error) {
	return ComputeCropRect(c.t, c.img, c.cfg.CropArea, c.minZoom, quality)
}

// settle returns the nearest legal transform. Scale is pulled back into
// [minZoom, maxZoom]; each translation axis that fell out of range snaps
// independently to the bound on its side (max for positive values, min for
// negative). Axes already in range are left untouched.
func settle(t Transform, img ImageSize, cropArea Size, minZoom, maxZoom float64) (Transform, bool) {
	if !img.Loaded() {
		return t, false
	}

	corrected := false

	scale := clamp(t.Scale, minZoom, maxZoom)
	if scale != t.Scale {
		t.Scale = scale
		corrected = true
	}

	if r := RangeX(t.Scale, img, cropArea, minZoom); !r.Contains(t.TranslateX) {
		if t.TranslateX > 0 {
			t.TranslateX = r.Max
		} else {
			t.TranslateX = r.Min
		}
		corrected = true
	}
	if r := RangeY(t.Scale, img, cropArea, minZoom); !r.Contains(t.TranslateY) {
		if t.TranslateY > 0 {
			t.TranslateY = r.Max
		} else {
			t.TranslateY = r.Min
		}
		corrected = true
	}

	return t, corrected
}
