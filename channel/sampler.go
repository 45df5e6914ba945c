package channel

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/mmwave-channel-sim/geom"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

const lightSpeed = 3.0e8

// FixedSampler replays the same scripted realization on every call. It is
// the workhorse for tests and for replaying externally generated channels.
type FixedSampler struct {
	Realization Realization
}

func (s FixedSampler) SampleClusters(_, _ spectrum.Mobility) (ClusterSet, error) {
	return ClusterSet{
		Delays: s.Realization.Delays,
		Angles: s.Realization.Angles,
	}, nil
}

func (s FixedSampler) SampleMatrix(_ *spectrum.ChannelParams, _, _ spectrum.Mobility, _, _ spectrum.Antenna) ([]*mat.CDense, error) {
	return s.Realization.Clusters, nil
}

// positionedAntenna is the optional antenna capability the LOS sampler uses
// to derive per-element phases. Arrays without element positions fall back
// to a common phase across elements.
type positionedAntenna interface {
	ElementPosition(i int) geom.Vec3
}

// LosSampler deterministically derives a single line-of-sight cluster from
// the endpoint geometry: the delay is the straight-line propagation time,
// the angles point along the connecting line, and the coefficient matrix
// carries the plane-wave phase per element pair at unit cluster power.
type LosSampler struct {
	// Frequency is the carrier frequency in Hz used for the phase terms.
	Frequency float64
}

func (s LosSampler) SampleClusters(a, b spectrum.Mobility) (ClusterSet, error) {
	sPos, uPos := a.Position(), b.Position()
	departure := uPos.Sub(sPos)
	arrival := sPos.Sub(uPos)

	return ClusterSet{
		Delays: []float64{sPos.DistanceTo(uPos) / lightSpeed},
		Angles: spectrum.Angles{
			AOD: []float64{departure.Azimuth()},
			ZOD: []float64{departure.Zenith()},
			AOA: []float64{arrival.Azimuth()},
			ZOA: []float64{arrival.Zenith()},
		},
	}, nil
}

func (s LosSampler) SampleMatrix(_ *spectrum.ChannelParams, a, b spectrum.Mobility, aAntenna, bAntenna spectrum.Antenna) ([]*mat.CDense, error) {
	sPos, uPos := a.Position(), b.Position()
	distance := sPos.DistanceTo(uPos)
	lambda := lightSpeed / s.Frequency
	k := 2 * math.Pi / lambda

	departure := uPos.Sub(sPos)
	arrival := sPos.Sub(uPos)

	rows := bAntenna.NumElements()
	cols := aAntenna.NumElements()
	h := mat.NewCDense(rows, cols, nil)

	// common phase from the path length
	pathPhase := cmplx.Exp(complex(0, -k*distance))
	for i := 0; i < rows; i++ {
		rxPhase := elementPhase(bAntenna, i, k, arrival)
		for j := 0; j < cols; j++ {
			txPhase := elementPhase(aAntenna, j, k, departure)
			h.Set(i, j, pathPhase*rxPhase*txPhase)
		}
	}
	return []*mat.CDense{h}, nil
}

// elementPhase returns the plane-wave phase of element i for a wave in
// direction dir.
func elementPhase(ant spectrum.Antenna, i int, k float64, dir geom.Vec3) complex128 {
	pa, ok := ant.(positionedAntenna)
	if !ok {
		return complex(1, 0)
	}
	n := dir.Norm()
	if n == 0 {
		return complex(1, 0)
	}
	unit := dir.Scale(1 / n)
	return cmplx.Exp(complex(0, k*unit.Dot(pa.ElementPosition(i))))
}
