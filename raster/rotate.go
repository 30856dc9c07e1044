package raster

import "image"

// normalizeRotation maps degrees to the canonical quarter turns
// 0, 90, 180, 270, snapping non-multiples of 90 down.
func normalizeRotation(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees - degrees%90
}

// fitWithin scales (w, h) so the larger side equals maxDim, preserving
// the aspect ratio. Dimensions never collapse below one pixel.
func fitWithin(w, h, maxDim int) (int, int) {
	if w >= h {
		scaled := h * maxDim / w
		if scaled < 1 {
			scaled = 1
		}
		return maxDim, scaled
	}
	scaled := w * maxDim / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDim
}

// rotateQuarter rotates img clockwise by a normalized quarter turn.
func rotateQuarter(img *image.RGBA, degrees int) *image.RGBA {
	if degrees == 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var out *image.RGBA
	switch degrees {
	case 90, 270:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	default:
		out = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			switch degrees {
			case 90:
				out.SetRGBA(h-1-y, x, c)
			case 180:
				out.SetRGBA(w-1-x, h-1-y, c)
			case 270:
				out.SetRGBA(y, w-1-x, c)
			}
		}
	}
	return out
}
