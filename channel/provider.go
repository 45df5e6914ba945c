// Package channel provides a concrete channel model for the fast-fading
// layer: it owns the per-link realization cache, regenerates the pair-level
// cluster structure when the coherence period expires or the channel
// condition changes, and derives per-antenna-pair coefficient matrices from
// the current structure. Every realization carries a monotonic generation
// identity. The cluster content itself comes from a pluggable Sampler.
package channel

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/mmwave-channel-sim/internal/logging"
	"github.com/signalsfoundry/mmwave-channel-sim/propagation"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

// Realization is one fully scripted channel: per-cluster coefficient
// matrices in (s, u) order plus the matching delays and centre angles.
// FixedSampler replays it verbatim.
type Realization struct {
	Clusters []*mat.CDense
	Delays   []float64
	Angles   spectrum.Angles
}

// ClusterSet is the pair-level structure of a realization: per-cluster delays
// and centre angles, shared by every antenna pair of the link.
type ClusterSet struct {
	Delays []float64
	Angles spectrum.Angles
}

// Sampler generates channel content for a node pair. The cluster structure is
// sampled once per realization; coefficient matrices are derived from it per
// antenna pair, so antenna pairs sharing a node pair see one consistent set
// of delays and angles. Implementations decide the statistics; the provider
// only manages identity and lifetime.
type Sampler interface {
	SampleClusters(s, u spectrum.Mobility) (ClusterSet, error)
	SampleMatrix(params *spectrum.ChannelParams, s, u spectrum.Mobility, sAntenna, uAntenna spectrum.Antenna) ([]*mat.CDense, error)
}

// ConditionModel supplies the channel condition for a node pair.
type ConditionModel interface {
	Condition(a, b spectrum.Mobility) propagation.Condition
}

// StaticCondition is a ConditionModel returning a fixed condition.
type StaticCondition propagation.Condition

func (c StaticCondition) Condition(_, _ spectrum.Mobility) propagation.Condition {
	return propagation.Condition(c)
}

// UpdateRecorder counts channel regenerations; the observability collector
// satisfies it.
type UpdateRecorder interface {
	ChannelUpdated()
}

// Config parameterises a Provider.
type Config struct {
	// Frequency is the operating carrier frequency in Hz.
	Frequency float64
	// UpdatePeriod is the coherence period after which a realization is
	// regenerated. Zero keeps realizations until the condition changes.
	UpdatePeriod time.Duration
}

// Provider implements spectrum.ChannelModel. Channel params are cached per
// node pair and matrices per antenna pair, both under reciprocal keys, so
// lookups are independent of argument order. A matrix whose generation has
// fallen behind its node pair's params belongs to a superseded realization
// and is re-derived before being served.
type Provider struct {
	cfg       Config
	clock     spectrum.Clock
	sampler   Sampler
	condition ConditionModel

	params     map[uint64]*paramsEntry
	matrices   map[uint64]*spectrum.ChannelMatrix
	generation uint64

	log     logging.Logger
	metrics UpdateRecorder
}

type paramsEntry struct {
	params *spectrum.ChannelParams
	cond   propagation.Condition
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// WithUpdateRecorder attaches a regeneration counter.
func WithUpdateRecorder(r UpdateRecorder) ProviderOption {
	return func(p *Provider) {
		p.metrics = r
	}
}

// NewProvider builds a provider around a sampler, a condition model and a
// simulation clock.
func NewProvider(cfg Config, sampler Sampler, condition ConditionModel, clock spectrum.Clock, opts ...ProviderOption) (*Provider, error) {
	if sampler == nil {
		return nil, fmt.Errorf("no sampler configured")
	}
	if condition == nil {
		return nil, fmt.Errorf("no condition model configured")
	}
	if clock == nil {
		return nil, fmt.Errorf("no clock configured")
	}
	if cfg.Frequency <= 0 {
		return nil, fmt.Errorf("frequency must be positive, got %g", cfg.Frequency)
	}
	p := &Provider{
		cfg:       cfg,
		clock:     clock,
		sampler:   sampler,
		condition: condition,
		params:    make(map[uint64]*paramsEntry),
		matrices:  make(map[uint64]*spectrum.ChannelMatrix),
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Frequency returns the operating carrier frequency in Hz.
func (p *Provider) Frequency() float64 {
	return p.cfg.Frequency
}

// GetChannel returns the current channel matrix for the pair. The pair-level
// params are regenerated when none exist, the coherence period has expired,
// or the channel condition changed; the antenna pair's matrix is re-derived
// when it is missing or its generation no longer matches the params, which
// happens when another antenna pair of the same link moved the realization
// on. The matrix served always carries the generation of the params GetParams
// returns for the pair.
func (p *Provider) GetChannel(a, b spectrum.Mobility, aAntenna, bAntenna spectrum.Antenna) (*spectrum.ChannelMatrix, error) {
	paramsKey := spectrum.LinkKey(uint32(a.NodeID()), uint32(b.NodeID()))
	matrixKey := spectrum.LinkKey(aAntenna.ID(), bAntenna.ID())
	cond := p.condition.Condition(a, b)

	entry, ok := p.params[paramsKey]
	if !ok || p.needsUpdate(entry, cond) {
		var err error
		entry, err = p.regenerateParams(paramsKey, cond, a, b)
		if err != nil {
			return nil, err
		}
	}

	matrix, ok := p.matrices[matrixKey]
	if !ok || matrix.Generation != entry.params.Generation {
		var err error
		matrix, err = p.regenerateMatrix(matrixKey, entry, a, b, aAntenna, bAntenna)
		if err != nil {
			return nil, err
		}
	}
	return matrix, nil
}

// GetParams returns the channel parameters of the current realization for the
// node pair, or nil when no realization exists yet.
func (p *Provider) GetParams(a, b spectrum.Mobility) (*spectrum.ChannelParams, error) {
	paramsKey := spectrum.LinkKey(uint32(a.NodeID()), uint32(b.NodeID()))
	entry, ok := p.params[paramsKey]
	if !ok {
		return nil, nil
	}
	return entry.params, nil
}

// Reset drops all cached realizations.
func (p *Provider) Reset() {
	p.params = make(map[uint64]*paramsEntry)
	p.matrices = make(map[uint64]*spectrum.ChannelMatrix)
}

func (p *Provider) needsUpdate(entry *paramsEntry, cond propagation.Condition) bool {
	if entry.cond != cond {
		return true
	}
	if p.cfg.UpdatePeriod > 0 && p.clock.Now()-entry.params.GeneratedAt > p.cfg.UpdatePeriod {
		return true
	}
	return false
}

// regenerateParams samples a fresh cluster structure for the node pair and
// advances the link's generation. Matrices derived from the previous
// structure are left in place; the generation check in GetChannel re-derives
// them lazily.
func (p *Provider) regenerateParams(key uint64, cond propagation.Condition, a, b spectrum.Mobility) (*paramsEntry, error) {
	clusters, err := p.sampler.SampleClusters(a, b)
	if err != nil {
		return nil, fmt.Errorf("sample clusters for nodes (%d, %d): %w", a.NodeID(), b.NodeID(), err)
	}

	p.generation++
	entry := &paramsEntry{
		params: &spectrum.ChannelParams{
			NodeIDs:     [2]spectrum.NodeID{a.NodeID(), b.NodeID()},
			Delays:      clusters.Delays,
			Angles:      clusters.Angles,
			Generation:  p.generation,
			GeneratedAt: p.clock.Now(),
		},
		cond: cond,
	}
	p.params[key] = entry

	p.log.Debug(context.Background(), "channel params regenerated",
		logging.Any("nodes", entry.params.NodeIDs),
		logging.Any("generation", p.generation),
		logging.Int("clusters", len(clusters.Delays)),
		logging.String("condition", cond.Los.String()),
	)
	return entry, nil
}

// regenerateMatrix derives the antenna pair's coefficient matrices from the
// current params and tags them with the params generation.
func (p *Provider) regenerateMatrix(key uint64, entry *paramsEntry,
	a, b spectrum.Mobility, aAntenna, bAntenna spectrum.Antenna) (*spectrum.ChannelMatrix, error) {

	clusters, err := p.sampler.SampleMatrix(entry.params, a, b, aAntenna, bAntenna)
	if err != nil {
		return nil, fmt.Errorf("sample matrix for nodes (%d, %d): %w", a.NodeID(), b.NodeID(), err)
	}
	if len(clusters) > len(entry.params.Delays) {
		return nil, fmt.Errorf("sampler returned %d clusters for %d delays", len(clusters), len(entry.params.Delays))
	}

	matrix := &spectrum.ChannelMatrix{
		NodeIDs:     [2]spectrum.NodeID{a.NodeID(), b.NodeID()},
		AntennaIDs:  [2]uint32{aAntenna.ID(), bAntenna.ID()},
		Clusters:    clusters,
		Generation:  entry.params.Generation,
		GeneratedAt: p.clock.Now(),
	}
	p.matrices[key] = matrix

	if p.metrics != nil {
		p.metrics.ChannelUpdated()
	}
	p.log.Debug(context.Background(), "channel matrix derived",
		logging.Any("antennas", matrix.AntennaIDs),
		logging.Any("generation", matrix.Generation),
		logging.Int("clusters", len(clusters)),
	)
	return matrix, nil
}
