package sim

import (
	"github.com/signalsfoundry/mmwave-channel-sim/geom"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

// ConstantVelocityMobility moves a node linearly from a start position. It
// reads the simulation clock on every Position call, so mobility stays
// consistent with the tick the caller is executing in.
type ConstantVelocityMobility struct {
	id       spectrum.NodeID
	start    geom.Vec3
	velocity geom.Vec3
	clock    Clock
}

// NewConstantVelocityMobility builds a mobility model for node id starting
// at start metres with the given velocity in m/s.
func NewConstantVelocityMobility(id spectrum.NodeID, start, velocity geom.Vec3, clock Clock) *ConstantVelocityMobility {
	return &ConstantVelocityMobility{id: id, start: start, velocity: velocity, clock: clock}
}

// NewStaticMobility builds a mobility model that never moves.
func NewStaticMobility(id spectrum.NodeID, position geom.Vec3) *ConstantVelocityMobility {
	return &ConstantVelocityMobility{id: id, start: position}
}

// NodeID returns the node identifier.
func (m *ConstantVelocityMobility) NodeID() spectrum.NodeID {
	return m.id
}

// Position returns the node position at the current simulation time.
func (m *ConstantVelocityMobility) Position() geom.Vec3 {
	if m.clock == nil {
		return m.start
	}
	return m.start.Add(m.velocity.Scale(m.clock.Now().Seconds()))
}

// Velocity returns the node velocity.
func (m *ConstantVelocityMobility) Velocity() geom.Vec3 {
	return m.velocity
}
