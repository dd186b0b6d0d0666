package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrthonormalize(t *testing.T) {
	t.Run("repairs drift", func(t *testing.T) {
		f := Frame{Facing: V(1, 1e-4, 0), Right: V(0, 1.0002, 1e-4), Up: V(0, 0, 0.9998)}
		out, err := f.Orthonormalize()
		require.NoError(t, err)
		assert.True(t, out.IsOrthonormal(1e-12))
		assert.InDelta(t, 1, out.Handedness(), 1e-12)
	})

	t.Run("keeps left handedness", func(t *testing.T) {
		f := Frame{Facing: V(-1, 0, 0), Right: V(0, 1, 0), Up: V(0, 0, 1)}
		out, err := f.Orthonormalize()
		require.NoError(t, err)
		assert.InDelta(t, -1, out.Handedness(), 1e-12)
		assert.True(t, out.ApproxEqual(f, 1e-12))
	})

	t.Run("degenerate", func(t *testing.T) {
		cases := []Frame{
			{Facing: V(1, 0, 0), Right: V(2, 0, 0), Up: V(0, 0, 1)},
			{Facing: Vec3{}, Right: V(0, 1, 0), Up: V(0, 0, 1)},
			{Facing: V(1, 0, 0), Right: V(0, 1, 0), Up: V(1, 0, 0)},
		}
		for _, f := range cases {
			_, err := f.Orthonormalize()
			assert.ErrorIs(t, err, ErrDegenerateFrame)
		}
	})
}

func TestIsOrthonormal(t *testing.T) {
	assert.True(t, WorldFrame().IsOrthonormal(1e-9))
	assert.False(t, Frame{Facing: V(1, 0, 0), Right: V(0, 1.1, 0), Up: V(0, 0, 1)}.IsOrthonormal(1e-6))
	assert.False(t, Frame{Facing: V(1, 0, 0), Right: V(0.1, 1, 0).Normalize(), Up: V(0, 0, 1)}.IsOrthonormal(1e-6))
}

func TestBox(t *testing.T) {
	b := BoxOf(V(1, 2, 3), V(-1, 5, 0))
	assert.Equal(t, V(-1, 2, 0), b.Min)
	assert.Equal(t, V(1, 5, 3), b.Max)
	assert.True(t, b.Contains(V(0, 3, 1)))
	assert.False(t, b.Contains(V(0, 6, 1)))
	assert.True(t, EmptyBox().IsEmpty())
	assert.Equal(t, b, EmptyBox().Union(b))
	assert.Equal(t, V(0, 3.5, 1.5), b.Center())
}

func TestLoops(t *testing.T) {
	square := []Vec3{V(0, 0, 0), V(4, 0, 0), V(4, 4, 0), V(0, 4, 0)}
	assert.Equal(t, []float64{4, 4, 4, 4}, EdgeLengths(square))
	assert.False(t, SelfIntersects(square, 1e-9))

	bowtie := []Vec3{V(0, 0, 0), V(4, 4, 0), V(4, 0, 0), V(0, 4, 0)}
	assert.True(t, SelfIntersects(bowtie, 1e-9))

	// Vertical loop projects onto a side plane.
	wall := []Vec3{V(0, 0, 0), V(0, 4, 4), V(0, 4, 0), V(0, 0, 4)}
	assert.True(t, SelfIntersects(wall, 1e-9))
}
