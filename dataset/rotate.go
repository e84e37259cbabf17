package dataset

import "math"

// Rotate rotates an h×w single-channel image counter-clockwise by the given
// angle in degrees about its center, using nearest-neighbor sampling and zero
// fill. The input is row-major and already normalized; the zero fill
// therefore lands in normalized units, matching a pipeline that rotates after
// normalization.
func Rotate(src []float64, h, w int, degrees float64) []float64 {
	out := make([]float64, len(src))
	if degrees == 0 {
		copy(out, src)
		return out
	}

	theta := degrees * math.Pi / 180
	sin, cos := math.Sincos(theta)
	cy := float64(h-1) / 2
	cx := float64(w-1) / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			// Inverse mapping: sample the source pixel that lands here.
			// Rows grow downward, so a visually counter-clockwise turn is a
			// clockwise rotation of the (x, y) coordinates.
			sx := cx + cos*dx - sin*dy
			sy := cy + sin*dx + cos*dy
			ix := int(math.Round(sx))
			iy := int(math.Round(sy))
			if ix >= 0 && ix < w && iy >= 0 && iy < h {
				out[y*w+x] = src[iy*w+ix]
			}
		}
	}
	return out
}
