package propagation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalsfoundry/mmwave-channel-sim/internal/logging"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

// Config parameterises the large-scale model.
type Config struct {
	// Frequency is the operating carrier frequency in Hz. Supported range is
	// 0.5 to 150 GHz.
	Frequency float64
	// Scenario selects the environment parameterisation.
	Scenario Scenario
	// ShadowingEnabled adds spatially correlated log-normal shadowing.
	ShadowingEnabled bool
	// O2ILossType selects the penetration model for indoor endpoints.
	O2ILossType O2ILossType
	// FoliageLossDbPerMeter enables foliage loss when positive; valid values
	// are 0 to 10 dB/m.
	FoliageLossDbPerMeter float64
	// AtmosphericAttenuationDbPerMeter is applied linearly with distance.
	AtmosphericAttenuationDbPerMeter float64
	// Seed drives the shadowing, O2I and foliage variates. Runs with the same
	// seed and call sequence reproduce identical losses.
	Seed uint64
}

// Model computes the large-scale attenuation between two endpoints. It keeps
// per-link shadowing state so consecutive calls for a moving link produce
// correlated values; like the fast-fading cache it assumes single-threaded
// simulation callbacks and takes no locks.
type Model struct {
	cfg       Config
	normal    distuv.Normal
	uniform   func(max float64) float64
	shadowing map[uint32]*shadowingEntry
	log       logging.Logger
}

// NewModel validates the configuration and builds a model.
func NewModel(cfg Config, log logging.Logger) (*Model, error) {
	if cfg.Frequency < 0.5e9 || cfg.Frequency > 150e9 {
		return nil, fmt.Errorf("frequency must be between 0.5 and 150 GHz, got %g Hz", cfg.Frequency)
	}
	if cfg.Scenario == nil {
		return nil, fmt.Errorf("no scenario configured")
	}
	if cfg.FoliageLossDbPerMeter < 0 || cfg.FoliageLossDbPerMeter > 10 {
		return nil, fmt.Errorf("foliage loss must be between 0 and 10 dB/m, got %g", cfg.FoliageLossDbPerMeter)
	}
	if log == nil {
		log = logging.Noop()
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed+1)
	uniformSrc := rand.New(rand.NewPCG(cfg.Seed+2, cfg.Seed+3))
	return &Model{
		cfg:    cfg,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform: func(max float64) float64 {
			return uniformSrc.Float64() * max
		},
		shadowing: make(map[uint32]*shadowingEntry),
		log:       log,
	}, nil
}

// PathLoss returns the deterministic close-in path loss in dB for the given
// condition. Distances below the 1 m reference are clamped to the reference.
func (m *Model) PathLoss(cond LosCondition, a, b spectrum.Mobility) (float64, error) {
	distance2D := a.Position().Distance2DTo(b.Position())
	if distance2D < refDistance {
		distance2D = refDistance
	}
	// the taller endpoint is treated as the base station
	hBs := math.Max(a.Position().Z, b.Position().Z)

	switch cond {
	case LOS:
		return m.cfg.Scenario.LossLos(m.cfg.Frequency, distance2D, hBs), nil
	case NLOS:
		return m.cfg.Scenario.LossNlos(m.cfg.Frequency, distance2D, hBs), nil
	default:
		return 0, fmt.Errorf("unknown channel condition %d", cond)
	}
}

// Loss returns the total large-scale attenuation in dB: path loss plus, when
// enabled, shadowing, outdoor-to-indoor penetration, foliage and atmospheric
// attenuation.
func (m *Model) Loss(ctx context.Context, cond Condition, a, b spectrum.Mobility) (float64, error) {
	loss, err := m.PathLoss(cond.Los, a, b)
	if err != nil {
		return 0, err
	}

	if m.cfg.ShadowingEnabled {
		loss += m.Shadowing(a, b, cond.Los)
	}
	if cond.O2I {
		loss += m.o2iLoss()
	}
	distance2D := a.Position().Distance2DTo(b.Position())
	if m.cfg.FoliageLossDbPerMeter > 0 {
		loss += m.cfg.FoliageLossDbPerMeter * m.uniform(distance2D)
	}
	if m.cfg.AtmosphericAttenuationDbPerMeter > 0 {
		loss += m.cfg.AtmosphericAttenuationDbPerMeter * distance2D
	}

	m.log.Debug(ctx, "large scale loss",
		logging.Any("nodes", [2]spectrum.NodeID{a.NodeID(), b.NodeID()}),
		logging.String("condition", cond.Los.String()),
		logging.Float64("loss_db", loss),
	)
	return loss, nil
}

// RxPower returns the received power in dBm after the total large-scale loss.
func (m *Model) RxPower(ctx context.Context, txPowerDbm float64, cond Condition, a, b spectrum.Mobility) (float64, error) {
	loss, err := m.Loss(ctx, cond, a, b)
	if err != nil {
		return 0, err
	}
	return txPowerDbm - loss, nil
}

// o2iLoss draws the outdoor-to-indoor penetration loss in dB.
func (m *Model) o2iLoss() float64 {
	freqGHz := m.cfg.Frequency / 1e9
	switch m.cfg.O2ILossType {
	case O2IHighLoss:
		return 10*math.Log10(10+5*freqGHz*freqGHz) + 6*m.normal.Rand()
	default:
		return 10*math.Log10(5+0.03*freqGHz*freqGHz) + 4*m.normal.Rand()
	}
}

// Attenuate scales every subcarrier of psd by the linear equivalent of
// lossDb, returning a fresh PSD.
func Attenuate(psd *spectrum.PSD, lossDb float64) *spectrum.PSD {
	gain := math.Pow(10, -lossDb/10)
	out := psd.Copy()
	for i := range out.Values {
		out.Values[i] *= gain
	}
	return out
}
