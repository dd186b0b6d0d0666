package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/siteshift/siteshift/internal/errors"
)

// Rigid is a rotation about an axis through Pivot, followed by Translation:
//
//	T(p) = R(p - pivot) + pivot + translation
//
// The rotation and translation are composed into one homogeneous matrix, so
// every entity sees a single map. Angle is in radians.
type Rigid struct {
	Axis        Vec3    `json:"axis"`
	Angle       float64 `json:"angle"`
	Pivot       Vec3    `json:"pivot"`
	Translation Vec3    `json:"translation"`

	m     mgl64.Mat4
	ready bool
}

// NewRigid validates the parameters and composes the matrix.
// A zero axis is allowed only when the angle is zero (pure translation).
func NewRigid(axis Vec3, angle float64, pivot, translation Vec3) (Rigid, error) {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return Rigid{}, errors.New(errors.ErrCodeMalformedTransform, "rotation angle must be finite, got %v", angle)
	}
	if !Finite(axis) || !Finite(pivot) || !Finite(translation) {
		return Rigid{}, errors.New(errors.ErrCodeMalformedTransform, "axis, pivot and translation must be finite")
	}
	if axis.Len() < 1e-12 {
		if angle != 0 {
			return Rigid{}, errors.New(errors.ErrCodeMalformedTransform, "rotation axis must be non-zero")
		}
		axis = V(0, 0, 1)
	}

	t := Rigid{
		Axis:        axis.Normalize(),
		Angle:       angle,
		Pivot:       pivot,
		Translation: translation,
	}
	t.m = t.compose()
	t.ready = true
	return t, nil
}

// MustRigid is NewRigid for literals known to be well-formed.
func MustRigid(axis Vec3, angle float64, pivot, translation Vec3) Rigid {
	t, err := NewRigid(axis, angle, pivot, translation)
	if err != nil {
		panic(err)
	}
	return t
}

// Identity returns the transform that leaves everything in place.
func Identity() Rigid {
	return MustRigid(V(0, 0, 1), 0, Vec3{}, Vec3{})
}

// Translation returns a pure translation.
func Translation(d Vec3) Rigid {
	return MustRigid(V(0, 0, 1), 0, Vec3{}, d)
}

// RotationAt returns a rotation about axis through pivot.
func RotationAt(axis Vec3, angle float64, pivot Vec3) (Rigid, error) {
	return NewRigid(axis, angle, pivot, Vec3{})
}

// Validate checks a Rigid that may have been decoded rather than built with NewRigid.
func (t Rigid) Validate() error {
	_, err := NewRigid(t.Axis, t.Angle, t.Pivot, t.Translation)
	return err
}

// compose builds Translate(pivot+translation) * R * Translate(-pivot).
func (t Rigid) compose() mgl64.Mat4 {
	rot := mgl64.QuatRotate(t.Angle, t.Axis.Normalize()).Normalize().Mat4()
	to := t.Pivot.Add(t.Translation)
	back := mgl64.Translate3D(-t.Pivot.X(), -t.Pivot.Y(), -t.Pivot.Z())
	return mgl64.Translate3D(to.X(), to.Y(), to.Z()).Mul4(rot).Mul4(back)
}

// Matrix returns the composed homogeneous matrix.
func (t Rigid) Matrix() mgl64.Mat4 {
	if t.ready {
		return t.m
	}
	return t.compose()
}

// ApplyToPoint maps a position through the full affine map.
func (t Rigid) ApplyToPoint(p Vec3) Vec3 {
	return t.Matrix().Mul4x1(p.Vec4(1)).Vec3()
}

// ApplyToVector rotates a free vector. Pivot and translation never touch it:
// the homogeneous w=0 drops the translation column.
func (t Rigid) ApplyToVector(v Vec3) Vec3 {
	return t.Matrix().Mul4x1(v.Vec4(0)).Vec3()
}

// ApplyToPoints maps every control position of a curve or loop.
func (t Rigid) ApplyToPoints(pts []Vec3) []Vec3 {
	out := make([]Vec3, len(pts))
	for i, p := range pts {
		out[i] = t.ApplyToPoint(p)
	}
	return out
}

// Inverse returns T⁻¹ such that Inverse().ApplyToPoint(ApplyToPoint(p)) == p.
func (t Rigid) Inverse() Rigid {
	inv, err := NewRigid(t.Axis, -t.Angle, t.Pivot.Add(t.Translation), t.Translation.Mul(-1))
	if err != nil {
		// t was valid, so its inverse is too.
		panic(err)
	}
	return inv
}

// IsTranslation reports whether the rotation part is the identity.
func (t Rigid) IsTranslation() bool {
	turns := math.Mod(t.Angle, 2*math.Pi)
	return math.Abs(turns) < 1e-12 || math.Abs(math.Abs(turns)-2*math.Pi) < 1e-12
}

// IsIdentity reports whether the transform moves nothing.
func (t Rigid) IsIdentity() bool {
	return t.IsTranslation() && t.Translation.Len() < 1e-12
}

// Diagnostics describes what a transform does to a probe point.
type Diagnostics struct {
	Probe           Vec3    `json:"probe"`
	Image           Vec3    `json:"image"`
	Displacement    Vec3    `json:"displacement"`
	AngleDegrees    float64 `json:"angleDegrees"`
	Determinant     float64 `json:"determinant"`
	Invertible      bool    `json:"invertible"`
	TranslationOnly bool    `json:"translationOnly"`
}

// Diagnose applies the transform to probe and reports the result.
func (t Rigid) Diagnose(probe Vec3) Diagnostics {
	img := t.ApplyToPoint(probe)
	det := t.Matrix().Mat3().Det()
	return Diagnostics{
		Probe:           probe,
		Image:           img,
		Displacement:    img.Sub(probe),
		AngleDegrees:    ToDegrees(t.Angle),
		Determinant:     det,
		Invertible:      math.Abs(det) > 1e-12,
		TranslationOnly: t.IsTranslation(),
	}
}
