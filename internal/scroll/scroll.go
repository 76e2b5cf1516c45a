// Package scroll maps a list's scroll offset to per-item scale and opacity.
// Everything here is a pure function of (offset, index, item height): no
// state is retained between calls, so callers may recompute on every
// scroll event.
package scroll

import "math"

// Default list geometry: 60-cell image plus three 20-cell margins.
const (
	DefaultImageSize = 60
	DefaultSpacing   = 20
)

// ItemHeight returns the fixed height of one list entry.
func ItemHeight(imageSize, spacing float64) float64 {
	return imageSize + 3*spacing
}

// Interpolation is a piecewise-linear function through control points
// with clamped extrapolation at both ends.
type Interpolation struct {
	in  []float64
	out []float64
}

// NewInterpolation builds an interpolation from parallel breakpoint and
// value slices. Breakpoints are forced non-decreasing (each is raised to
// at least its predecessor), which turns a degenerate range into a step
// instead of a fault. Extra values in the longer slice are ignored.
func NewInterpolation(in, out []float64) Interpolation {
	n := min(len(in), len(out))
	ip := Interpolation{in: make([]float64, n), out: make([]float64, n)}
	copy(ip.out, out[:n])
	for i := 0; i < n; i++ {
		x := in[i]
		if math.IsNaN(x) {
			x = math.Inf(-1)
		}
		if i > 0 && x < ip.in[i-1] {
			x = ip.in[i-1]
		}
		ip.in[i] = x
	}
	return ip
}

// At evaluates the interpolation at x. An empty interpolation yields 0;
// NaN yields the first output value.
func (ip Interpolation) At(x float64) float64 {
	n := len(ip.in)
	if n == 0 {
		return 0
	}
	if math.IsNaN(x) || x <= ip.in[0] {
		return ip.out[0]
	}
	if x >= ip.in[n-1] {
		return ip.out[n-1]
	}
	for i := 0; i < n-1; i++ {
		lo, hi := ip.in[i], ip.in[i+1]
		if x > hi {
			continue
		}
		if hi == lo {
			return ip.out[i+1]
		}
		t := (x - lo) / (hi - lo)
		return ip.out[i] + t*(ip.out[i+1]-ip.out[i])
	}
	return ip.out[n-1]
}

// Transform is the visual state of one list entry.
type Transform struct {
	Scale   float64
	Opacity float64
}

var fade = []float64{1, 1, 1, 0}

// ScaleAt returns the scale of item i at offset s. Scale holds at 1 until
// the offset reaches the item's top and reaches 0 two item heights later.
func ScaleAt(s float64, i int, h float64) float64 {
	if !usable(h) {
		return 1
	}
	top := h * float64(i)
	return NewInterpolation([]float64{-1, 0, top, h * float64(i+2)}, fade).At(s)
}

// OpacityAt returns the opacity of item i at offset s. Opacity reaches 0
// one item height past the item's top.
func OpacityAt(s float64, i int, h float64) float64 {
	if !usable(h) {
		return 1
	}
	top := h * float64(i)
	return NewInterpolation([]float64{-1, 0, top, h * float64(i+1)}, fade).At(s)
}

// ItemTransform returns both curves for item i at offset s. A zero,
// negative or non-finite height yields the identity transform.
func ItemTransform(s float64, i int, h float64) Transform {
	return Transform{Scale: ScaleAt(s, i, h), Opacity: OpacityAt(s, i, h)}
}

func usable(h float64) bool {
	return h > 0 && !math.IsInf(h, 0) && !math.IsNaN(h)
}

// MaxOffset is the largest meaningful offset for n items in a viewport.
func MaxOffset(n int, h, viewport float64) float64 {
	if !usable(h) || n <= 0 {
		return 0
	}
	return math.Max(0, float64(n)*h-viewport)
}

// ClampOffset bounds s to [0, MaxOffset].
func ClampOffset(s float64, n int, h, viewport float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return math.Min(s, MaxOffset(n, h, viewport))
}

// VisibleRange returns the half-open index range [first, last) of items
// that intersect the viewport at offset s.
func VisibleRange(s, viewport, h float64, n int) (first, last int) {
	if !usable(h) || n <= 0 || viewport <= 0 {
		return 0, 0
	}
	s = math.Max(0, s)
	first = int(math.Floor(s / h))
	last = int(math.Ceil((s + viewport) / h))
	first = min(max(first, 0), n)
	last = min(max(last, first), n)
	return first, last
}
