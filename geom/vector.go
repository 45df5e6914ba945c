package geom

import "math"

// Vec3 is a Cartesian vector in metres (positions) or metres per second
// (velocities), depending on context.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Distance2DTo returns the distance between two points projected on the
// horizontal (XY) plane. Large-scale path loss models are parameterised on
// this 2D distance.
func (v Vec3) Distance2DTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Azimuth returns the azimuth angle of the vector in radians, measured on the
// XY plane from the positive X axis.
func (v Vec3) Azimuth() float64 {
	return math.Atan2(v.Y, v.X)
}

// Zenith returns the zenith angle of the vector in radians, measured from the
// positive Z axis. The zero vector maps to pi/2 (horizon).
func (v Vec3) Zenith() float64 {
	n := v.Norm()
	if n == 0 {
		return math.Pi / 2
	}
	c := v.Z / n
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
