// Package geom holds the rigid-transform primitive and the small amount of
// vector geometry the engine needs on top of mgl64.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a position or a free direction in model space.
// Which of the two it is decides whether ApplyToPoint or ApplyToVector applies.
type Vec3 = mgl64.Vec3

// DefaultEpsilon is the coincidence tolerance in model units.
const DefaultEpsilon = 1e-6

// V is shorthand for building a Vec3.
func V(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// Finite reports whether every component of v is a finite number.
func Finite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Dist returns the euclidean distance between two points.
func Dist(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// Near reports whether two points coincide within eps.
func Near(a, b Vec3, eps float64) bool {
	return Dist(a, b) <= eps
}

// Degrees converts degrees to radians.
func Degrees(d float64) float64 {
	return d * math.Pi / 180.0
}

// ToDegrees converts radians to degrees.
func ToDegrees(r float64) float64 {
	return r * 180.0 / math.Pi
}

// PlanarAngle returns the angle of v's XY projection measured from +X, in degrees.
func PlanarAngle(v Vec3) float64 {
	return ToDegrees(math.Atan2(v.Y(), v.X()))
}
