package propagation

import "math"

const (
	lightSpeed = 3.0e8
	// free-space reference distance in metres
	refDistance = 1.0
	// measurement anchor frequencies in GHz; parameters at other carriers
	// are linearly interpolated between these anchors
	lowerAnchorGHz  = 28.0
	higherAnchorGHz = 140.0
)

// calibrated interpolates a parameter measured at the 28 GHz and 140 GHz
// anchors to the given carrier frequency in Hz. Outside the anchor range the
// nearest measured value is used.
func calibrated(at28, at140, frequency float64) float64 {
	freqGHz := frequency / 1e9
	switch {
	case freqGHz < lowerAnchorGHz:
		return at28
	case freqGHz > higherAnchorGHz:
		return at140
	default:
		return freqGHz*(at140-at28)/(higherAnchorGHz-lowerAnchorGHz) + (5*at28-at140)/4
	}
}

// freeSpaceLoss returns the free-space path loss at the 1 m reference
// distance in dB for the given carrier frequency in Hz.
func freeSpaceLoss(frequency float64) float64 {
	lambda := lightSpeed / frequency
	return 20 * math.Log10(4*math.Pi*refDistance/lambda)
}

// Scenario captures the per-environment close-in path loss parameterisation:
// loss in dB as a function of carrier frequency (Hz), 2D distance (m) and
// base-station height (m), plus the shadowing statistics.
type Scenario interface {
	Name() string
	LossLos(frequency, distance2D, hBs float64) float64
	LossNlos(frequency, distance2D, hBs float64) float64
	ShadowingStd(frequency float64, cond LosCondition) float64
	ShadowingCorrelationDistance(cond LosCondition) float64
}

// UMi is the urban microcell scenario.
type UMi struct{}

func (UMi) Name() string { return "UMi" }

func (UMi) LossLos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(2.0, 2.0, frequency)*math.Log10(distance2D)
}

func (UMi) LossNlos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(3.2, 2.9, frequency)*math.Log10(distance2D)
}

func (UMi) ShadowingStd(frequency float64, cond LosCondition) float64 {
	if cond == LOS {
		return calibrated(4.0, 2.6, frequency)
	}
	return calibrated(7.0, 8.2, frequency)
}

func (UMi) ShadowingCorrelationDistance(cond LosCondition) float64 {
	if cond == LOS {
		return 10
	}
	return 13
}

// UMa is the urban macrocell scenario.
type UMa struct{}

func (UMa) Name() string { return "UMa" }

func (UMa) LossLos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(2.0, 2.0, frequency)*math.Log10(distance2D)
}

func (UMa) LossNlos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(2.9, 2.9, frequency)*math.Log10(distance2D)
}

func (UMa) ShadowingStd(frequency float64, cond LosCondition) float64 {
	if cond == LOS {
		return calibrated(4.0, 2.6, frequency)
	}
	return calibrated(7.0, 8.2, frequency)
}

func (UMa) ShadowingCorrelationDistance(cond LosCondition) float64 {
	if cond == LOS {
		return 37
	}
	return 50
}

// RMa is the rural macrocell scenario. Its distance coefficient depends on
// the base-station height rather than a frequency-calibrated exponent.
type RMa struct{}

func (RMa) Name() string { return "RMa" }

func (RMa) LossLos(frequency, distance2D, hBs float64) float64 {
	return freeSpaceLoss(frequency) + 23.1*(1-0.03*((hBs-35)/35))*math.Log10(distance2D)
}

func (RMa) LossNlos(frequency, distance2D, hBs float64) float64 {
	return freeSpaceLoss(frequency) + 30.7*(1-0.049*((hBs-35)/35))*math.Log10(distance2D)
}

func (RMa) ShadowingStd(frequency float64, cond LosCondition) float64 {
	if cond == LOS {
		return 1.7
	}
	return 6.7
}

func (RMa) ShadowingCorrelationDistance(cond LosCondition) float64 {
	if cond == LOS {
		return 37
	}
	return 120
}

// InH is the indoor hotspot scenario.
type InH struct{}

func (InH) Name() string { return "InH" }

func (InH) LossLos(frequency, distance2D, _ float64) float64 {
	freqGHz := frequency / 1e9
	var ple float64
	if freqGHz < lowerAnchorGHz {
		// below the first anchor the exponent extrapolates down to 1 GHz
		ple = freqGHz*(1.2-1.8)/(28-1) + (28*1.8-1.2)/27
	} else {
		ple = calibrated(1.2, 1.8, frequency)
	}
	return freeSpaceLoss(frequency) + 10*ple*math.Log10(distance2D)
}

func (InH) LossNlos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(2.7, 2.7, frequency)*math.Log10(distance2D)
}

func (InH) ShadowingStd(frequency float64, cond LosCondition) float64 {
	if cond == LOS {
		return calibrated(3.0, 2.9, frequency)
	}
	return calibrated(9.8, 6.6, frequency)
}

func (InH) ShadowingCorrelationDistance(cond LosCondition) float64 {
	if cond == LOS {
		return 10
	}
	return 6
}

// InF is the indoor factory scenario.
type InF struct{}

func (InF) Name() string { return "InF" }

func (InF) LossLos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(1.7, 1.7, frequency)*math.Log10(distance2D)
}

func (InF) LossNlos(frequency, distance2D, _ float64) float64 {
	return freeSpaceLoss(frequency) + 10*calibrated(3.1, 3.1, frequency)*math.Log10(distance2D)
}

func (InF) ShadowingStd(frequency float64, cond LosCondition) float64 {
	if cond == LOS {
		return 3.0
	}
	return 7.0
}

func (InF) ShadowingCorrelationDistance(cond LosCondition) float64 {
	return 10
}

// ScenarioByName maps a configuration string to a Scenario.
func ScenarioByName(name string) (Scenario, bool) {
	switch name {
	case "UMi":
		return UMi{}, true
	case "UMa":
		return UMa{}, true
	case "RMa":
		return RMa{}, true
	case "InH":
		return InH{}, true
	case "InF":
		return InF{}, true
	default:
		return nil, false
	}
}
