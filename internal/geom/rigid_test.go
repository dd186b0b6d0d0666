package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteshift/siteshift/internal/errors"
)

const eps = 1e-9

func assertNear(t *testing.T, want, got Vec3) {
	t.Helper()
	assert.Truef(t, Near(want, got, eps), "want %v, got %v", want, got)
}

func TestNewRigid(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float64
		pivot Vec3
		trans Vec3
		code  errors.Code
	}{
		{name: "rotation", axis: V(0, 0, 1), angle: math.Pi / 2},
		{name: "pure translation with zero axis", axis: Vec3{}, angle: 0, trans: V(1, 2, 3)},
		{name: "zero axis with angle", axis: Vec3{}, angle: 1, code: errors.ErrCodeMalformedTransform},
		{name: "nan angle", axis: V(0, 0, 1), angle: math.NaN(), code: errors.ErrCodeMalformedTransform},
		{name: "inf translation", axis: V(0, 0, 1), trans: V(math.Inf(1), 0, 0), code: errors.ErrCodeMalformedTransform},
		{name: "nan pivot", axis: V(0, 0, 1), pivot: V(0, math.NaN(), 0), code: errors.ErrCodeMalformedTransform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRigid(tt.axis, tt.angle, tt.pivot, tt.trans)
			if tt.code != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.code))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, 1, r.Axis.Len(), eps)
		})
	}
}

func TestRotateThenTranslate(t *testing.T) {
	r := MustRigid(V(0, 0, 1), Degrees(90), Vec3{}, V(5, 5, 0))

	assertNear(t, V(5, 15, 0), r.ApplyToPoint(V(10, 0, 0)))

	f := WorldFrame().Rotate(r)
	assertNear(t, V(0, 1, 0), f.Facing)
	assertNear(t, V(-1, 0, 0), f.Right)
	assertNear(t, V(0, 0, 1), f.Up)
}

func TestVectorIgnoresPivotAndTranslation(t *testing.T) {
	a := MustRigid(V(0, 0, 1), Degrees(30), Vec3{}, Vec3{})
	b := MustRigid(V(0, 0, 1), Degrees(30), V(100, -40, 7), V(3, 9, -2))

	for _, v := range []Vec3{V(1, 0, 0), V(0.3, -0.7, 0.2), V(0, 0, 1)} {
		assertNear(t, a.ApplyToVector(v), b.ApplyToVector(v))
	}
	assertNear(t, V(3, 4, 0), Translation(V(3, 4, 0)).ApplyToPoint(Vec3{}))
	assertNear(t, V(1, 0, 0), Translation(V(3, 4, 0)).ApplyToVector(V(1, 0, 0)))
}

func TestRotationAboutPivot(t *testing.T) {
	r, err := RotationAt(V(0, 0, 1), Degrees(180), V(10, 5, 0))
	require.NoError(t, err)

	assertNear(t, V(10, 5, 0), r.ApplyToPoint(V(10, 5, 0)))
	assertNear(t, V(20, 10, 0), r.ApplyToPoint(V(0, 0, 0)))
}

func TestInverseRoundTrip(t *testing.T) {
	r := MustRigid(V(1, 2, 3), 1.234, V(-4, 2, 8), V(7, -1, 0.5))
	inv := r.Inverse()

	for _, p := range []Vec3{V(0, 0, 0), V(10, 0, 0), V(-3.5, 12, 99), V(1e3, -1e3, 5)} {
		assertNear(t, p, inv.ApplyToPoint(r.ApplyToPoint(p)))
	}
	v := V(0.6, 0.8, 0)
	assertNear(t, v, inv.ApplyToVector(r.ApplyToVector(v)))
}

func TestIdentity(t *testing.T) {
	id := Identity()
	assert.True(t, id.IsIdentity())
	assert.True(t, id.IsTranslation())

	p := V(3, -2, 11)
	assert.Equal(t, p, id.ApplyToPoint(p))
	assert.False(t, Translation(V(1, 0, 0)).IsIdentity())
	assert.True(t, MustRigid(V(0, 0, 1), 2*math.Pi, Vec3{}, Vec3{}).IsTranslation())
	assert.False(t, MustRigid(V(0, 0, 1), 0.1, Vec3{}, Vec3{}).IsTranslation())
}

func TestValidateDecoded(t *testing.T) {
	var r Rigid
	r.Axis = Vec3{}
	r.Angle = 0.5
	assert.True(t, errors.Is(r.Validate(), errors.ErrCodeMalformedTransform))

	r.Axis = V(0, 0, 2)
	require.NoError(t, r.Validate())
	// A decoded value composes its matrix on demand.
	assertNear(t, V(math.Cos(0.5), math.Sin(0.5), 0), r.ApplyToPoint(V(1, 0, 0)))
}

func TestDiagnose(t *testing.T) {
	d := MustRigid(V(0, 0, 1), 0, Vec3{}, V(50, 50, 0)).Diagnose(V(1, 2, 3))

	assertNear(t, V(51, 52, 3), d.Image)
	assertNear(t, V(50, 50, 0), d.Displacement)
	assert.InDelta(t, 1, d.Determinant, eps)
	assert.True(t, d.Invertible)
	assert.True(t, d.TranslationOnly)

	d = MustRigid(V(0, 0, 1), Degrees(45), Vec3{}, Vec3{}).Diagnose(V(1, 0, 0))
	assert.InDelta(t, 45, d.AngleDegrees, eps)
	assert.False(t, d.TranslationOnly)
}
