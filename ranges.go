package main

// scaledExtent returns the on-screen extent of one image axis. The scale is
// relative to the contain baseline: the contained extent (extent*minZoom)
// grown by scale/minZoom.
func scaledExtent(extent, scale, minZoom float64) float64 {
	return extent * minZoom * (scale / minZoom)
}

// panRange computes the legal translation interval for one axis, in
// image-local units. Slack is how far the image center may move from the
// crop-area center before an image edge would enter the crop area. When
// the rendered extent does not exceed the crop area the axis is pinned
// to center.
//
// Called on every interactive update, so it must stay allocation-free.
func panRange(scale, minZoom, extent, cropExtent float64) Range {
	slack := (scaledExtent(extent, scale, minZoom) - cropExtent) / 2
	if slack <= 0 {
		return Range{}
	}
	slack /= scale
	return Range{Min: -slack, Max: slack}
}

// RangeX returns the legal horizontal translation interval at the given
// scale. At scale == minZoom on the constraining axis the interval
// collapses to {0, 0}.
func RangeX(scale float64, img ImageSize, cropArea Size, minZoom float64) Range {
	return panRange(scale, minZoom, img.EffectiveSize().Width, cropArea.Width)
}

// RangeY is RangeX for the vertical axis.
func RangeY(scale float64, img ImageSize, cropArea Size, minZoom float64) Range {
	return panRange(scale, minZoom, img.EffectiveSize().Height, cropArea.Height)
}
