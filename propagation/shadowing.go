package propagation

import (
	"math"

	"github.com/signalsfoundry/mmwave-channel-sim/geom"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

// shadowingEntry remembers the last shadowing realization for a link so the
// next one can be correlated with it.
type shadowingEntry struct {
	shadowing float64
	// displacement is the position difference of the pair, ordered by node
	// ID so it is independent of argument order.
	displacement geom.Vec3
	cond         LosCondition
}

// pairKey folds the unordered node pair into a single key using the Cantor
// pairing of the sorted IDs.
func pairKey(a, b spectrum.NodeID) uint32 {
	x1, x2 := uint32(a), uint32(b)
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	return (x1+x2)*(x1+x2+1)/2 + x2
}

// orderedDisplacement returns the position difference of the pair with the
// sign fixed by node ID order.
func orderedDisplacement(a, b spectrum.Mobility) geom.Vec3 {
	if a.NodeID() < b.NodeID() {
		return b.Position().Sub(a.Position())
	}
	return a.Position().Sub(b.Position())
}

// Shadowing returns the log-normal shadowing loss in dB for the link. The
// first realization for a pair, and any realization after the condition
// changed, is drawn independently; subsequent realizations decorrelate
// exponentially with the distance the pair has moved since the last call.
func (m *Model) Shadowing(a, b spectrum.Mobility, cond LosCondition) float64 {
	key := pairKey(a.NodeID(), b.NodeID())
	displacement := orderedDisplacement(a, b)
	std := m.cfg.Scenario.ShadowingStd(m.cfg.Frequency, cond)

	entry, ok := m.shadowing[key]
	if !ok || entry.cond != cond {
		value := std * m.normal.Rand()
		m.shadowing[key] = &shadowingEntry{
			shadowing:    value,
			displacement: displacement,
			cond:         cond,
		}
		return value
	}

	moved := displacement.Sub(entry.displacement)
	// only horizontal motion decorrelates shadowing
	delta := math.Sqrt(moved.X*moved.X + moved.Y*moved.Y)
	r := math.Exp(-delta / m.cfg.Scenario.ShadowingCorrelationDistance(cond))
	value := r*entry.shadowing + math.Sqrt(1-r*r)*m.normal.Rand()*std

	entry.shadowing = value
	entry.displacement = displacement
	entry.cond = cond
	return value
}
