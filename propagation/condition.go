// Package propagation implements the large-scale layer of the channel
// simulator: distance/frequency path loss with per-scenario exponents,
// spatially correlated log-normal shadowing, and the fixed penetration
// losses (outdoor-to-indoor, foliage, atmospheric). How a link's channel
// condition is decided is a collaborator concern; this package only consumes
// condition values.
package propagation

// LosCondition classifies the line-of-sight state of a link.
type LosCondition int

const (
	// LOS marks an unobstructed link.
	LOS LosCondition = iota
	// NLOS marks an obstructed link.
	NLOS
)

func (c LosCondition) String() string {
	switch c {
	case LOS:
		return "LOS"
	case NLOS:
		return "NLOS"
	default:
		return "unknown"
	}
}

// O2ILossType selects the outdoor-to-indoor penetration loss model.
type O2ILossType int

const (
	// O2ILowLoss models low-loss building materials.
	O2ILowLoss O2ILossType = iota
	// O2IHighLoss models high-loss building materials.
	O2IHighLoss
)

// Condition is the externally supplied channel condition of a link.
type Condition struct {
	Los LosCondition
	// O2I marks a link terminating indoors; penetration loss applies.
	O2I bool
}
