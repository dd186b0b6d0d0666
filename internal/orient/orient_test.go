package orient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
)

const eps = 1e-9

func quarterTurn() geom.Rigid {
	return geom.MustRigid(geom.V(0, 0, 1), math.Pi/2, geom.Vec3{}, geom.V(5, 5, 0))
}

func TestPointScenario(t *testing.T) {
	e := &document.Entity{
		ID:   "pt",
		Kind: document.KindPoint,
		Point: &document.PointState{
			Position:    geom.V(10, 0, 0),
			Orientation: &document.Orientation{Encoding: document.EncodingFrame, Frame: geom.WorldFrame()},
		},
	}
	require.NoError(t, New(eps).Apply(e, quarterTurn()))

	assert.True(t, geom.Near(geom.V(5, 15, 0), e.Point.Position, eps))
	f := e.Point.Orientation.Frame
	assert.True(t, geom.Near(geom.V(0, 1, 0), f.Facing, eps))
	assert.True(t, geom.Near(geom.V(-1, 0, 0), f.Right, eps))
	assert.True(t, geom.Near(geom.V(0, 0, 1), f.Up, eps))
}

func flipDoor(facing, hand bool) *document.Orientation {
	return &document.Orientation{
		Encoding:      document.EncodingFlip,
		Frame:         geom.Frame{Facing: geom.V(0, 1, 0), Right: geom.V(-1, 0, 0), Up: geom.V(0, 0, 1)},
		FacingFlipped: facing,
		HandFlipped:   hand,
	}
}

func TestFlipOrientation(t *testing.T) {
	p := New(eps)
	r := geom.MustRigid(geom.V(0, 0, 1), geom.Degrees(37), geom.V(3, 1, 0), geom.V(-2, 8, 0))

	for _, bits := range []Flips{{}, {Facing: true}, {Hand: true}, {Facing: true, Hand: true}} {
		o := flipDoor(bits.Facing, bits.Hand)
		raw, err := Compose(o.Frame, bits, eps)
		require.NoError(t, err)

		got, err := p.Orientation(o, r)
		require.NoError(t, err)

		assert.Equal(t, bits, FlipsOf(&got), "rotation never changes flip bits")
		assert.True(t, got.Frame.IsOrthonormal(eps))
		assert.Greater(t, got.Frame.Handedness(), 0.0)

		visible, err := Compose(got.Frame, FlipsOf(&got), eps)
		require.NoError(t, err)
		assert.True(t, visible.ApproxEqual(raw.Rotate(r), 1e-9), "visible frame is the rotated visible frame")

		back, err := p.Orientation(&got, r.Inverse())
		require.NoError(t, err)
		assert.True(t, back.Frame.ApproxEqual(o.Frame, 1e-9))
		assert.Equal(t, bits, FlipsOf(&back))
	}
}

func TestDecomposeParity(t *testing.T) {
	raw := geom.WorldFrame()
	_, _, err := Decompose(raw, Flips{Facing: true}, eps)
	assert.ErrorIs(t, err, errParity)

	left := Flips{Hand: true}.apply(raw)
	base, bits, err := Decompose(left, Flips{Hand: true}, eps)
	require.NoError(t, err)
	assert.Equal(t, Flips{Hand: true}, bits)
	assert.True(t, base.ApproxEqual(raw, eps))
}

func TestOrientationFailures(t *testing.T) {
	p := New(eps)

	t.Run("skewed flip base", func(t *testing.T) {
		o := flipDoor(true, false)
		o.Frame.Right = geom.V(-1, 0.2, 0)
		e := &document.Entity{ID: "bad", Kind: document.KindPoint, Point: &document.PointState{Position: geom.V(1, 0, 0), Orientation: o}}

		err := p.Apply(e, quarterTurn())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeOrientationDecomposition))
		assert.Equal(t, "bad", errors.EntityOf(err))
		assert.Equal(t, geom.V(1, 0, 0), e.Point.Position, "entity left untouched")
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := p.Orientation(&document.Orientation{Encoding: "euler", Frame: geom.WorldFrame()}, quarterTurn())
		assert.Error(t, err)
	})

	t.Run("degenerate view", func(t *testing.T) {
		e := &document.Entity{ID: "v", Kind: document.KindView, View: &document.ViewState{Look: geom.V(1, 0, 0), Right: geom.V(1, 0, 0), Up: geom.V(0, 0, 1)}}
		err := p.Apply(e, quarterTurn())
		assert.True(t, errors.Is(err, errors.ErrCodeOrientationDecomposition))
	})
}

func TestViewCarriesCrop(t *testing.T) {
	e := &document.Entity{
		ID:   "v",
		Kind: document.KindView,
		View: &document.ViewState{
			Origin: geom.V(10, 5, 0),
			Look:   geom.V(0, 1, 0),
			Up:     geom.V(0, 0, 1),
			Right:  geom.V(1, 0, 0),
			Crop:   &document.CropWindow{Active: true, Anchor: geom.V(10, 5, 0), Min: [2]float64{-12, 0}, Max: [2]float64{12, 8}},
		},
	}
	before := e.View.Crop.Corners(e.View.Right, e.View.Up)
	r := quarterTurn()
	require.NoError(t, New(eps).Apply(e, r))

	v := e.View
	assert.True(t, geom.Near(geom.V(-1, 0, 0), v.Look, eps))
	assert.True(t, geom.Near(geom.V(0, 1, 0), v.Right, eps))
	assert.True(t, geom.Near(r.ApplyToPoint(geom.V(10, 5, 0)), v.Origin, eps))
	assert.Equal(t, [2]float64{-12, 0}, v.Crop.Min)

	after := v.Crop.Corners(v.Right, v.Up)
	for i := range before {
		assert.True(t, geom.Near(r.ApplyToPoint(before[i]), after[i], 1e-9), "corner %d", i)
	}
}

func TestAnnotationDirection(t *testing.T) {
	dir := geom.V(1, 0, 0)
	e := &document.Entity{ID: "a", Kind: document.KindAnnotation, Annotation: &document.AnnotationState{Direction: &dir}}
	require.NoError(t, New(eps).Apply(e, quarterTurn()))
	assert.True(t, geom.Near(geom.V(0, 1, 0), *e.Annotation.Direction, eps))
}

func TestTranslationKeepsFrames(t *testing.T) {
	o := flipDoor(true, true)
	got, err := New(eps).Orientation(o, geom.Translation(geom.V(50, 50, 0)))
	require.NoError(t, err)
	assert.True(t, got.Frame.ApproxEqual(o.Frame, eps))
	assert.Equal(t, Flips{Facing: true, Hand: true}, FlipsOf(&got))
}

func TestDescribe(t *testing.T) {
	d, err := document.New(document.NewSampleDocument("doc_d"))
	require.NoError(t, err)

	reports := Describe(d, d.Enumerate(document.Filter{Kinds: []document.Kind{document.KindPoint}}))
	require.Len(t, reports, 3)

	byName := make(map[string]Report)
	for _, r := range reports {
		byName[r.Name] = r
	}

	door := byName["Entry door"]
	assert.True(t, door.FacingFlipped)
	assert.True(t, geom.Near(geom.V(0, -1, 0), door.Facing, eps))
	assert.InDelta(t, -90, door.FacingAngle, 1e-9)

	marker := byName["Interior elevation marker"]
	require.Len(t, marker.Views, 4)
	assert.InDelta(t, 90, marker.Views[0].LookAngle, 1e-9)
}
