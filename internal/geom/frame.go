package geom

import (
	"errors"
	"math"
)

// ErrDegenerateFrame is returned when a frame's axes are too close to
// parallel (or zero) to recover an orthonormal basis from them.
var ErrDegenerateFrame = errors.New("degenerate orientation frame")

// Frame is an orientation: three mutually orthogonal unit vectors. For a
// placed fixture these are facing/right/up; views map look/right/up onto it.
type Frame struct {
	Facing Vec3 `json:"facing"`
	Right  Vec3 `json:"right"`
	Up     Vec3 `json:"up"`
}

// WorldFrame is facing +X, right +Y, up +Z.
func WorldFrame() Frame {
	return Frame{Facing: V(1, 0, 0), Right: V(0, 1, 0), Up: V(0, 0, 1)}
}

// Handedness is Facing×Right·Up: +1 or -1 for an orthonormal frame.
func (f Frame) Handedness() float64 {
	return f.Facing.Cross(f.Right).Dot(f.Up)
}

// Rotate applies t to every axis as a free vector.
func (f Frame) Rotate(t Rigid) Frame {
	return Frame{
		Facing: t.ApplyToVector(f.Facing),
		Right:  t.ApplyToVector(f.Right),
		Up:     t.ApplyToVector(f.Up),
	}
}

// Orthonormalize runs Gram-Schmidt with Facing as the primary axis and Right
// second, then rebuilds Up from the cross product with the frame's original
// handedness.
func (f Frame) Orthonormalize() (Frame, error) {
	const minLen = 1e-9

	if f.Facing.Len() < minLen || f.Right.Len() < minLen || f.Up.Len() < minLen {
		return Frame{}, ErrDegenerateFrame
	}
	facing := f.Facing.Normalize()

	right := f.Right.Sub(facing.Mul(f.Right.Dot(facing)))
	if right.Len() < minLen {
		return Frame{}, ErrDegenerateFrame
	}
	right = right.Normalize()

	hand := f.Handedness()
	if math.Abs(hand) < 0.5*f.Facing.Len()*f.Right.Len()*f.Up.Len() {
		return Frame{}, ErrDegenerateFrame
	}
	up := facing.Cross(right)
	if hand < 0 {
		up = up.Mul(-1)
	}

	return Frame{Facing: facing, Right: right, Up: up}, nil
}

// IsOrthonormal reports whether every axis is unit length and every pair is
// perpendicular, all within eps.
func (f Frame) IsOrthonormal(eps float64) bool {
	for _, a := range []Vec3{f.Facing, f.Right, f.Up} {
		if !Finite(a) || math.Abs(a.Len()-1) > eps {
			return false
		}
	}
	return math.Abs(f.Facing.Dot(f.Right)) <= eps &&
		math.Abs(f.Facing.Dot(f.Up)) <= eps &&
		math.Abs(f.Right.Dot(f.Up)) <= eps
}

// ApproxEqual compares two frames axis by axis.
func (f Frame) ApproxEqual(o Frame, eps float64) bool {
	return Near(f.Facing, o.Facing, eps) && Near(f.Right, o.Right, eps) && Near(f.Up, o.Up, eps)
}
