// Package antenna models the phased-array endpoint of a beamformed link: the
// per-element positions and the complex weight vector applied at
// transmission or reception. Beam selection policy lives with the caller;
// this package only stores and derives weight vectors.
package antenna

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/signalsfoundry/mmwave-channel-sim/geom"
)

// BeamformingVector is an ordered sequence of complex weights, one per
// antenna element.
type BeamformingVector []complex128

// Equal reports element-wise equality. Exact comparison is intentional: the
// long-term cache must treat any changed weight as a different beam.
func (v BeamformingVector) Equal(other BeamformingVector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the vector.
func (v BeamformingVector) Clone() BeamformingVector {
	out := make(BeamformingVector, len(v))
	copy(out, v)
	return out
}

// Norm returns the Euclidean norm of the weight vector.
func (v BeamformingVector) Norm() float64 {
	sum := 0.0
	for _, w := range v {
		sum += real(w)*real(w) + imag(w)*imag(w)
	}
	return math.Sqrt(sum)
}

// PhasedArray is a set of antenna elements with fixed relative positions and
// a current beamforming vector.
type PhasedArray struct {
	id       uint32
	elements []geom.Vec3
	weights  BeamformingVector
}

// NewIsotropicElement builds a degenerate one-element array with unit weight.
func NewIsotropicElement(id uint32) *PhasedArray {
	return &PhasedArray{
		id:       id,
		elements: []geom.Vec3{{}},
		weights:  BeamformingVector{complex(1, 0)},
	}
}

// NewUniformLinearArray builds an n-element array along the Y axis with the
// given element spacing in metres. The initial beamforming vector is the
// broadside beam 1/sqrt(n) on every element.
func NewUniformLinearArray(id uint32, n int, spacing float64) (*PhasedArray, error) {
	if n <= 0 {
		return nil, fmt.Errorf("element count must be positive, got %d", n)
	}
	elements := make([]geom.Vec3, n)
	for i := range elements {
		elements[i] = geom.Vec3{Y: float64(i) * spacing}
	}
	weights := make(BeamformingVector, n)
	w := complex(1/math.Sqrt(float64(n)), 0)
	for i := range weights {
		weights[i] = w
	}
	return &PhasedArray{id: id, elements: elements, weights: weights}, nil
}

// ID returns the array identifier. IDs are unique per array instance within
// a simulation and feed the long-term cache key.
func (a *PhasedArray) ID() uint32 {
	return a.id
}

// NumElements returns the number of antenna elements.
func (a *PhasedArray) NumElements() int {
	return len(a.elements)
}

// ElementPosition returns the position of element i relative to the array
// reference point, in metres.
func (a *PhasedArray) ElementPosition(i int) geom.Vec3 {
	return a.elements[i]
}

// BeamformingVector returns the current weight vector. The slice is shared,
// not copied; callers that need to retain it across beam changes must clone.
func (a *PhasedArray) BeamformingVector() BeamformingVector {
	return a.weights
}

// SetBeamformingVector replaces the current weights.
func (a *PhasedArray) SetBeamformingVector(w BeamformingVector) error {
	if len(w) != len(a.elements) {
		return fmt.Errorf("beamforming vector has %d weights for %d elements", len(w), len(a.elements))
	}
	a.weights = w
	return nil
}

// SteeringVector derives the conjugate phase weights that steer the array
// toward the direction (azimuth, zenith), both in radians, at the given
// wavelength in metres. Weights are normalised to unit total power.
func (a *PhasedArray) SteeringVector(azimuth, zenith, wavelength float64) BeamformingVector {
	// unit vector of the steering direction
	dir := geom.Vec3{
		X: math.Sin(zenith) * math.Cos(azimuth),
		Y: math.Sin(zenith) * math.Sin(azimuth),
		Z: math.Cos(zenith),
	}
	k := 2 * math.Pi / wavelength
	scale := complex(1/math.Sqrt(float64(len(a.elements))), 0)
	w := make(BeamformingVector, len(a.elements))
	for i, pos := range a.elements {
		phase := -k * dir.Dot(pos)
		w[i] = scale * cmplx.Exp(complex(0, phase))
	}
	return w
}

// PointTo steers the current beamforming vector toward (azimuth, zenith) at
// the given wavelength.
func (a *PhasedArray) PointTo(azimuth, zenith, wavelength float64) {
	a.weights = a.SteeringVector(azimuth, zenith, wavelength)
}
