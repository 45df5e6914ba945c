package spectrum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/mmwave-channel-sim/antenna"
	"github.com/signalsfoundry/mmwave-channel-sim/internal/logging"
)

var (
	ErrMissingAntenna   = errors.New("antenna not found for node")
	ErrNoChannelMatrix  = errors.New("no channel matrix for node pair")
	ErrNoChannelParams  = errors.New("no channel params for node pair")
	ErrSameNode         = errors.New("endpoints refer to the same node")
	ErrNoChannelModel   = errors.New("no channel model configured")
	ErrMissingTxPsd     = errors.New("missing transmitted PSD")
	ErrMissingEndpoints = errors.New("missing endpoint mobility")
)

// MetricsRecorder receives counters from the propagation model. The
// observability package satisfies it; a nil recorder disables recording.
type MetricsRecorder interface {
	LongTermComputed()
	LongTermCacheHit()
	RxPsdComputed(elapsed time.Duration)
	SetActiveLinks(n int)
}

// PropagationModel is the public entry point of the fast-fading layer. It
// owns the long-term cache and composes the channel model, the long-term
// computation and the beamforming-gain transform per call.
//
// All calls happen synchronously from ordered simulation callbacks; the model
// holds no locks and must not be shared across concurrently running
// simulations.
type PropagationModel struct {
	channel ChannelModel
	clock   Clock
	cache   *LongTermCache
	log     logging.Logger
	metrics MetricsRecorder
}

// Option configures a PropagationModel.
type Option func(*PropagationModel)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(pm *PropagationModel) {
		if l != nil {
			pm.log = l
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(pm *PropagationModel) {
		pm.metrics = m
	}
}

// NewPropagationModel builds a model around a channel model and a simulation
// clock.
func NewPropagationModel(channel ChannelModel, clock Clock, opts ...Option) *PropagationModel {
	pm := &PropagationModel{
		channel: channel,
		clock:   clock,
		cache:   NewLongTermCache(),
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

// ComputeRxPsd returns the received PSD for a transmission from a to b (the
// transform is reciprocal, so the roles of a and b only fix the velocity
// signs). It fetches the current channel realization, refreshes the cached
// long-term component if the realization or either beamforming vector
// changed, and applies the beamforming gain to txPsd.
//
// Any precondition failure is a wiring bug in the surrounding simulation and
// is returned as an error; the model never silently produces zero power for
// a malformed call.
func (pm *PropagationModel) ComputeRxPsd(ctx context.Context, txPsd *PSD, a, b Mobility, aAntenna, bAntenna Antenna) (*PSD, error) {
	start := time.Now()

	if pm.channel == nil {
		return nil, ErrNoChannelModel
	}
	if txPsd == nil {
		return nil, ErrMissingTxPsd
	}
	if a == nil || b == nil {
		return nil, ErrMissingEndpoints
	}
	if a.NodeID() == b.NodeID() {
		return nil, fmt.Errorf("%w: node %d", ErrSameNode, a.NodeID())
	}
	if aAntenna == nil {
		return nil, fmt.Errorf("%w: node %d", ErrMissingAntenna, a.NodeID())
	}
	if bAntenna == nil {
		return nil, fmt.Errorf("%w: node %d", ErrMissingAntenna, b.NodeID())
	}

	matrix, err := pm.channel.GetChannel(a, b, aAntenna, bAntenna)
	if err != nil {
		return nil, fmt.Errorf("get channel for nodes (%d, %d): %w", a.NodeID(), b.NodeID(), err)
	}
	if matrix == nil {
		return nil, fmt.Errorf("%w: nodes (%d, %d)", ErrNoChannelMatrix, a.NodeID(), b.NodeID())
	}
	params, err := pm.channel.GetParams(a, b)
	if err != nil {
		return nil, fmt.Errorf("get channel params for nodes (%d, %d): %w", a.NodeID(), b.NodeID(), err)
	}
	if params == nil {
		return nil, fmt.Errorf("%w: nodes (%d, %d)", ErrNoChannelParams, a.NodeID(), b.NodeID())
	}

	longTerm, err := pm.getLongTerm(ctx, matrix, aAntenna, bAntenna)
	if err != nil {
		return nil, err
	}

	rxPsd, err := CalcBeamformingGain(txPsd, longTerm, matrix, params,
		a.Velocity(), b.Velocity(), pm.clock.Now(), pm.channel.Frequency())
	if err != nil {
		return nil, err
	}

	if pm.metrics != nil {
		pm.metrics.RxPsdComputed(time.Since(start))
	}
	return rxPsd, nil
}

// getLongTerm resolves the antenna-weighted long-term component through the
// cache, computing it only when the stored entry no longer matches the
// current channel generation and beams.
func (pm *PropagationModel) getLongTerm(ctx context.Context, matrix *ChannelMatrix, aAntenna, bAntenna Antenna) ([]complex128, error) {
	reverse, err := matrix.Reverse(aAntenna.ID(), bAntenna.ID())
	if err != nil {
		return nil, err
	}

	// Map the endpoints onto the (s, u) order the matrix was generated in.
	var sW, uW antenna.BeamformingVector
	if !reverse {
		sW = aAntenna.BeamformingVector()
		uW = bAntenna.BeamformingVector()
	} else {
		sW = bAntenna.BeamformingVector()
		uW = aAntenna.BeamformingVector()
	}

	key := LinkKey(aAntenna.ID(), bAntenna.ID())
	longTerm, hit, err := pm.cache.Get(key, matrix, sW, uW)
	if err != nil {
		return nil, err
	}
	if pm.metrics != nil {
		if hit {
			pm.metrics.LongTermCacheHit()
		} else {
			pm.metrics.LongTermComputed()
			pm.metrics.SetActiveLinks(pm.cache.Len())
		}
	}
	if !hit {
		pm.log.Debug(ctx, "long term component recomputed",
			logging.Any("link_key", key),
			logging.Any("generation", matrix.Generation),
			logging.Int("clusters", matrix.NumClusters()),
		)
	}
	return longTerm, nil
}

// PruneLink drops the cached long-term entry for the antenna pair of a link
// that is no longer active, bounding cache growth in long simulations.
func (pm *PropagationModel) PruneLink(aAntennaID, bAntennaID uint32) {
	pm.cache.Remove(LinkKey(aAntennaID, bAntennaID))
	if pm.metrics != nil {
		pm.metrics.SetActiveLinks(pm.cache.Len())
	}
}

// Reset clears the long-term cache so a fresh scenario can reuse the model.
func (pm *PropagationModel) Reset() {
	pm.cache.Reset()
	if pm.metrics != nil {
		pm.metrics.SetActiveLinks(0)
	}
}

// CacheLen reports the number of cached links.
func (pm *PropagationModel) CacheLen() int {
	return pm.cache.Len()
}
