package spectrum

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/mmwave-channel-sim/geom"
)

// speed of light in m/s
const lightSpeed = 3.0e8

// CalcBeamformingGain applies the small-scale fading transform to txPsd: for
// every subcarrier it sums the per-cluster long-term components rotated by
// the cluster's Doppler phase (evaluated at the simulation time now) and
// propagation-delay phase, and scales the transmitted power by the squared
// magnitude of that sum. sSpeed and uSpeed are the velocities of the s and u
// endpoints in the order the channel matrix was generated; frequency is the
// operating centre frequency in Hz.
//
// Cluster powers are normalised upstream to sum to unity across clusters, so
// no further normalisation is applied here. Zero clusters yield an all-zero
// PSD; zero-valued subcarriers are left untouched.
func CalcBeamformingGain(txPsd *PSD, longTerm []complex128, matrix *ChannelMatrix, params *ChannelParams,
	sSpeed, uSpeed geom.Vec3, now time.Duration, frequency float64) (*PSD, error) {

	numClusters := matrix.NumClusters()
	if len(longTerm) < numClusters {
		return nil, fmt.Errorf("long term component has %d entries for %d clusters", len(longTerm), numClusters)
	}
	if len(params.Delays) < numClusters {
		return nil, fmt.Errorf("channel params carry %d delays for %d clusters", len(params.Delays), numClusters)
	}

	// The params structure may have been generated in the opposite node order
	// to the matrix; in that case departure and arrival angles swap roles.
	zoa, zod := params.Angles.ZOA, params.Angles.ZOD
	aoa, aod := params.Angles.AOA, params.Angles.AOD
	if params.NodeIDs != matrix.NodeIDs {
		zoa, zod = zod, zoa
		aoa, aod = aod, aoa
	}
	if len(zoa) < numClusters || len(zod) < numClusters || len(aoa) < numClusters || len(aod) < numClusters {
		return nil, fmt.Errorf("channel params carry fewer angles than %d clusters", numClusters)
	}

	// Doppler phase per cluster from the projection of each endpoint's
	// velocity onto the cluster centre angles. Only the cluster centre angle
	// is considered, not the per-subpath offsets.
	factor := 2 * math.Pi * now.Seconds() * frequency / lightSpeed
	doppler := make([]complex128, numClusters)
	for c := 0; c < numClusters; c++ {
		shift := factor * ((math.Sin(zoa[c])*math.Cos(aoa[c])*uSpeed.X +
			math.Sin(zoa[c])*math.Sin(aoa[c])*uSpeed.Y +
			math.Cos(zoa[c])*uSpeed.Z) +
			(math.Sin(zod[c])*math.Cos(aod[c])*sSpeed.X +
				math.Sin(zod[c])*math.Sin(aod[c])*sSpeed.Y +
				math.Cos(zod[c])*sSpeed.Z))
		doppler[c] = complex(math.Cos(shift), math.Sin(shift))
	}

	rxPsd := txPsd.Copy()
	for i, v := range rxPsd.Values {
		if v == 0 {
			continue
		}
		fsb := rxPsd.Bands[i].Fc
		var gain complex128
		for c := 0; c < numClusters; c++ {
			phase := -2 * math.Pi * fsb * params.Delays[c]
			gain += longTerm[c] * complex(math.Cos(phase), math.Sin(phase)) * doppler[c]
		}
		rxPsd.Values[i] = v * (real(gain)*real(gain) + imag(gain)*imag(gain))
	}
	return rxPsd, nil
}
