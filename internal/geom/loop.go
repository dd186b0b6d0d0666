package geom

import "math"

// EdgeLengths returns the length of every edge of a closed loop, including
// the implicit closing edge from the last vertex back to the first.
func EdgeLengths(loop []Vec3) []float64 {
	n := len(loop)
	out := make([]float64, n)
	for i := range loop {
		out[i] = Dist(loop[i], loop[(i+1)%n])
	}
	return out
}

// Normal returns the Newell normal of a closed loop (unnormalized).
func Normal(loop []Vec3) Vec3 {
	var n Vec3
	for i := range loop {
		a, b := loop[i], loop[(i+1)%len(loop)]
		n[0] += (a.Y() - b.Y()) * (a.Z() + b.Z())
		n[1] += (a.Z() - b.Z()) * (a.X() + b.X())
		n[2] += (a.X() - b.X()) * (a.Y() + b.Y())
	}
	return n
}

// SelfIntersects reports whether any two non-adjacent edges of the loop cross.
// The loop is projected onto the coordinate plane most perpendicular to its
// normal before testing.
func SelfIntersects(loop []Vec3, eps float64) bool {
	n := len(loop)
	if n < 4 {
		return false
	}

	// A figure-eight has a zero Newell normal; fall back to the loop's extent.
	axis := Normal(loop)
	if axis.Len() <= eps {
		b := BoxOf(loop...)
		ext := b.Max.Sub(b.Min)
		axis = V(1/(ext.X()+eps), 1/(ext.Y()+eps), 1/(ext.Z()+eps))
	}
	drop := 2
	if math.Abs(axis.X()) >= math.Abs(axis.Y()) && math.Abs(axis.X()) >= math.Abs(axis.Z()) {
		drop = 0
	} else if math.Abs(axis.Y()) >= math.Abs(axis.Z()) {
		drop = 1
	}
	pts := make([][2]float64, n)
	for i, p := range loop {
		switch drop {
		case 0:
			pts[i] = [2]float64{p.Y(), p.Z()}
		case 1:
			pts[i] = [2]float64{p.Z(), p.X()}
		default:
			pts[i] = [2]float64{p.X(), p.Y()}
		}
	}

	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// skip edges sharing a vertex
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := pts[j], pts[(j+1)%n]
			if segmentsCross(a1, a2, b1, b2, eps) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(p1, p2, q1, q2 [2]float64, eps float64) bool {
	d1 := orient2d(q1, q2, p1)
	d2 := orient2d(q1, q2, p2)
	d3 := orient2d(p1, p2, q1)
	d4 := orient2d(p1, p2, q2)
	return ((d1 > eps && d2 < -eps) || (d1 < -eps && d2 > eps)) &&
		((d3 > eps && d4 < -eps) || (d3 < -eps && d4 > eps))
}

func orient2d(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
