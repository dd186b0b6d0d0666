package orient

import (
	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/geom"
)

// Flips are the facing/hand flip bits of a flip-encoded orientation. They
// are a projection of the raw frame, never a direction: rotating a frame
// never rotates the bits, it re-derives them.
type Flips struct {
	Facing bool
	Hand   bool
}

// FlipsOf reads the flip bits of an orientation.
func FlipsOf(o *document.Orientation) Flips {
	return Flips{Facing: o.FacingFlipped, Hand: o.HandFlipped}
}

// odd reports whether exactly one axis is flipped, which makes the raw frame
// left-handed.
func (f Flips) odd() bool {
	return f.Facing != f.Hand
}

// apply negates the flipped axes. It is its own inverse.
func (f Flips) apply(fr geom.Frame) geom.Frame {
	if f.Facing {
		fr.Facing = fr.Facing.Mul(-1)
	}
	if f.Hand {
		fr.Right = fr.Right.Mul(-1)
	}
	return fr
}

// Compose rebuilds the raw (visible) frame from a right-handed base frame and
// its flip bits.
func Compose(base geom.Frame, flips Flips, eps float64) (geom.Frame, error) {
	if !base.IsOrthonormal(eps) {
		return geom.Frame{}, errNotOrthonormal
	}
	if base.Handedness() <= 0 {
		return geom.Frame{}, errLeftHandedBase
	}
	return flips.apply(base), nil
}

// Decompose splits a raw frame into a right-handed base frame and flip bits.
// The raw frame's handedness fixes the parity of the bits; within that parity
// prefer is kept, so a rigid rotation leaves the bits untouched.
func Decompose(raw geom.Frame, prefer Flips, eps float64) (geom.Frame, Flips, error) {
	if !raw.IsOrthonormal(eps) {
		return geom.Frame{}, Flips{}, errNotOrthonormal
	}
	if (raw.Handedness() < 0) != prefer.odd() {
		return geom.Frame{}, Flips{}, errParity
	}
	base := prefer.apply(raw)
	if base.Handedness() <= 0 {
		return geom.Frame{}, Flips{}, errLeftHandedBase
	}
	return base, prefer, nil
}
