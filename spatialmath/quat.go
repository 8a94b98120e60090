package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationAboutZ returns the unit quaternion for a rotation of the given
// angle about the +Z axis.
func RotationAboutZ(angleRad float64) quat.Number {
	sin, cos := math.Sincos(angleRad / 2)
	return quat.Number{Real: cos, Kmag: sin}
}

// RotationAboutAxis returns the unit quaternion for a rotation of the given
// angle about the given (not necessarily unit) axis.
func RotationAboutAxis(axis r3.Vector, angleRad float64) quat.Number {
	axis = axis.Normalize()
	sin, cos := math.Sincos(angleRad / 2)
	return quat.Number{Real: cos, Imag: sin * axis.X, Jmag: sin * axis.Y, Kmag: sin * axis.Z}
}

// Normalize returns the unit quaternion in the direction of q.
func Normalize(q quat.Number) quat.Number {
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// Rotate applies the rotation q to the vector v.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	qv := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	res := quat.Mul(quat.Mul(q, qv), quat.Conj(q))
	return r3.Vector{X: res.Imag, Y: res.Jmag, Z: res.Kmag}
}

// AngleBetween returns the magnitude of the rotation taking a to b, in
// radians.
func AngleBetween(a, b quat.Number) float64 {
	delta := quat.Mul(quat.Conj(a), b)
	cosHalf := math.Abs(delta.Real)
	if cosHalf > 1 {
		cosHalf = 1
	}
	return 2 * math.Acos(cosHalf)
}
