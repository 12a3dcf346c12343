// Package vector holds the small amount of 3-D vector math the sensor
// drivers need, generic over the integer and float types raw samples and
// derived quantities come in.
package vector

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Vector is an ordered (x, y, z) triple.
type Vector[T Number] struct {
	X T `json:"x" yaml:"x"`
	Y T `json:"y" yaml:"y"`
	Z T `json:"z" yaml:"z"`
}

func New[T Number](x, y, z T) Vector[T] {
	return Vector[T]{X: x, Y: y, Z: z}
}

func (v Vector[T]) String() string {
	return fmt.Sprintf("(%v, %v, %v)", v.X, v.Y, v.Z)
}

// Convert returns v with every component converted to To.
func Convert[To, T Number](v Vector[T]) Vector[To] {
	return Vector[To]{X: To(v.X), Y: To(v.Y), Z: To(v.Z)}
}

// Float is Convert to float64.
func Float[T Number](v Vector[T]) Vector[float64] {
	return Convert[float64](v)
}

// Cross returns a x b. Components are converted to To before multiplying, so
// a wider To keeps integer inputs from overflowing.
func Cross[To, Ta, Tb Number](a Vector[Ta], b Vector[Tb]) Vector[To] {
	ax, ay, az := To(a.X), To(a.Y), To(a.Z)
	bx, by, bz := To(b.X), To(b.Y), To(b.Z)
	return Vector[To]{
		X: ay*bz - az*by,
		Y: az*bx - ax*bz,
		Z: ax*by - ay*bx,
	}
}

// Dot returns a . b in float64.
func Dot[Ta, Tb Number](a Vector[Ta], b Vector[Tb]) float64 {
	return float64(a.X)*float64(b.X) + float64(a.Y)*float64(b.Y) + float64(a.Z)*float64(b.Z)
}

func Magnitude[T Number](v Vector[T]) float64 {
	return math.Sqrt(Dot(v, v))
}

// Normalize scales a to unit length in place. A zero vector becomes NaN.
func Normalize(a *Vector[float64]) {
	mag := Magnitude(*a)
	a.X /= mag
	a.Y /= mag
	a.Z /= mag
}

// Sub returns a - b.
func Sub[T Number](a, b Vector[T]) Vector[T] {
	return Vector[T]{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}
