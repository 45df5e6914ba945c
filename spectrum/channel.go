// Package spectrum implements the frequency-selective, beamformed fast-fading
// transform of the channel simulator: it turns a transmitted PSD, a geometric
// cluster-based channel matrix and the two endpoint beamforming vectors into
// the received PSD. The expensive antenna-weighted long-term component is
// cached per link and recomputed only when the channel realization or either
// beam changes.
package spectrum

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/mmwave-channel-sim/antenna"
	"github.com/signalsfoundry/mmwave-channel-sim/geom"
)

// NodeID identifies a simulated node.
type NodeID uint32

// LinkKey derives a single order-independent key for the unordered pair
// {a, b}: the smaller identifier is packed into the high 32 bits and the
// larger into the low 32 bits, so LinkKey(a, b) == LinkKey(b, a).
func LinkKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// Angles holds the per-cluster centre angles of a channel realization, in
// radians: azimuth/zenith of departure and azimuth/zenith of arrival.
type Angles struct {
	AOD []float64
	ZOD []float64
	AOA []float64
	ZOA []float64
}

// ChannelMatrix is an immutable snapshot of the fast-fading channel between
// two endpoints: one complex coefficient matrix per propagation cluster, of
// size rxElements x txElements in the (s, u) order the matrix was generated.
// Generation is a monotonic counter distinguishing this realization from any
// other for the same link.
type ChannelMatrix struct {
	// NodeIDs and AntennaIDs record the (s, u) generation order.
	NodeIDs     [2]NodeID
	AntennaIDs  [2]uint32
	Clusters    []*mat.CDense
	Generation  uint64
	GeneratedAt time.Duration
}

// NumClusters returns the number of propagation clusters.
func (m *ChannelMatrix) NumClusters() int {
	return len(m.Clusters)
}

// Reverse reports whether the matrix was generated with b as the s-node and a
// as the u-node. It fails if the matrix does not belong to the antenna pair
// at all, which indicates a wiring bug upstream.
func (m *ChannelMatrix) Reverse(aAntennaID, bAntennaID uint32) (bool, error) {
	switch {
	case m.AntennaIDs[0] == aAntennaID && m.AntennaIDs[1] == bAntennaID:
		return false, nil
	case m.AntennaIDs[0] == bAntennaID && m.AntennaIDs[1] == aAntennaID:
		return true, nil
	default:
		return false, fmt.Errorf("channel matrix belongs to antenna pair (%d, %d), not (%d, %d)",
			m.AntennaIDs[0], m.AntennaIDs[1], aAntennaID, bAntennaID)
	}
}

// ChannelParams carries the slow-changing parameters associated 1:1 with a
// ChannelMatrix generation: per-cluster propagation delays in seconds and
// cluster centre angles. NodeIDs records the (s, u) order the parameters were
// generated in, which may be the reverse of the matrix order.
type ChannelParams struct {
	NodeIDs     [2]NodeID
	Delays      []float64
	Angles      Angles
	Generation  uint64
	GeneratedAt time.Duration
}

// Mobility is the read-only view of a simulated node's motion state.
type Mobility interface {
	NodeID() NodeID
	Position() geom.Vec3
	Velocity() geom.Vec3
}

// Antenna is the read-only view of a phased-array endpoint.
type Antenna interface {
	ID() uint32
	NumElements() int
	BeamformingVector() antenna.BeamformingVector
}

// ChannelModel supplies versioned channel realizations for node pairs. It is
// queried on every call; whether a fresh matrix is generated is the model's
// decision, signalled through the Generation counter.
type ChannelModel interface {
	GetChannel(a, b Mobility, aAntenna, bAntenna Antenna) (*ChannelMatrix, error)
	GetParams(a, b Mobility) (*ChannelParams, error)

	// Frequency returns the operating centre frequency in Hz.
	Frequency() float64
}

// Clock exposes the current simulation time as an offset from the simulation
// start. Doppler phase terms are evaluated at this resolution.
type Clock interface {
	Now() time.Duration
}
