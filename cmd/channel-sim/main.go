package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/signalsfoundry/mmwave-channel-sim/antenna"
	"github.com/signalsfoundry/mmwave-channel-sim/channel"
	"github.com/signalsfoundry/mmwave-channel-sim/geom"
	"github.com/signalsfoundry/mmwave-channel-sim/internal/logging"
	"github.com/signalsfoundry/mmwave-channel-sim/internal/observability"
	"github.com/signalsfoundry/mmwave-channel-sim/propagation"
	"github.com/signalsfoundry/mmwave-channel-sim/sim"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

const lightSpeed = 3.0e8

func main() {
	duration := flag.Duration("duration", 10*time.Second, "total simulation duration")
	tick := flag.Duration("tick", 100*time.Millisecond, "tick interval")
	frequencyGHz := flag.Float64("frequency", 28.0, "carrier frequency in GHz")
	scenarioName := flag.String("scenario", "UMi", "propagation scenario (UMi, UMa, RMa, InH, InF)")
	distance := flag.Float64("distance", 100.0, "initial 2D distance between the endpoints in metres")
	speed := flag.Float64("speed", 1.0, "receiver speed along the X axis in m/s")
	elements := flag.Int("elements", 4, "antenna elements per uniform linear array")
	subcarriers := flag.Int("subcarriers", 64, "number of PSD subcarriers")
	bandwidthMHz := flag.Float64("bandwidth", 100.0, "total bandwidth in MHz")
	txPowerDbm := flag.Float64("txpower", 30.0, "transmit power in dBm")
	updatePeriod := flag.Duration("update-period", 1*time.Second, "channel realization coherence period")
	beamPeriod := flag.Duration("beam-period", 1*time.Second, "beam re-steering period")
	shadowing := flag.Bool("shadowing", true, "enable log-normal shadowing")
	seed := flag.Uint64("seed", 1, "seed for the large-scale variates")
	metricsAddr := flag.String("metrics-addr", "", "listen address for /metrics (empty disables)")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		fatal("init tracing: %v", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	collector, err := observability.NewChannelCollector(nil)
	if err != nil {
		fatal("register metrics: %v", err)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn(ctx, "metrics listener stopped", logging.String("error", err.Error()))
			}
		}()
	}

	scenario, ok := propagation.ScenarioByName(*scenarioName)
	if !ok {
		fatal("unknown scenario %q", *scenarioName)
	}

	frequency := *frequencyGHz * 1e9
	wavelength := lightSpeed / frequency

	runner, err := sim.NewRunner(*tick, log)
	if err != nil {
		fatal("build runner: %v", err)
	}
	clock := runner.Clock()

	// A fixed transmitter and a receiver drifting along X, both above ground.
	tx := sim.NewStaticMobility(1, geom.Vec3{Z: 10})
	rx := sim.NewConstantVelocityMobility(2, geom.Vec3{X: *distance, Z: 1.5}, geom.Vec3{X: *speed}, clock)

	txAnt, err := antenna.NewUniformLinearArray(1, *elements, wavelength/2)
	if err != nil {
		fatal("build tx antenna: %v", err)
	}
	rxAnt, err := antenna.NewUniformLinearArray(2, *elements, wavelength/2)
	if err != nil {
		fatal("build rx antenna: %v", err)
	}

	provider, err := channel.NewProvider(
		channel.Config{Frequency: frequency, UpdatePeriod: *updatePeriod},
		channel.LosSampler{Frequency: frequency},
		channel.StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
		channel.WithLogger(log),
		channel.WithUpdateRecorder(collector),
	)
	if err != nil {
		fatal("build channel provider: %v", err)
	}

	largeScale, err := propagation.NewModel(propagation.Config{
		Frequency:        frequency,
		Scenario:         scenario,
		ShadowingEnabled: *shadowing,
		Seed:             *seed,
	}, log)
	if err != nil {
		fatal("build large-scale model: %v", err)
	}

	model := spectrum.NewPropagationModel(provider, clock,
		spectrum.WithLogger(log),
		spectrum.WithMetrics(collector),
	)

	bandwidth := *bandwidthMHz * 1e6
	txPowerW := math.Pow(10, (*txPowerDbm-30)/10)
	txPsd, err := spectrum.NewUniformPSD(frequency, bandwidth, *subcarriers, txPowerW/bandwidth)
	if err != nil {
		fatal("build tx PSD: %v", err)
	}

	cond := propagation.Condition{Los: propagation.LOS}
	var lastSteer time.Duration = -1

	runner.OnTick(func(tickCtx context.Context, now time.Duration) error {
		// re-steer both beams toward the current geometry once per period
		if lastSteer < 0 || now-lastSteer >= *beamPeriod {
			steer(txAnt, rx.Position().Sub(tx.Position()), wavelength)
			steer(rxAnt, tx.Position().Sub(rx.Position()), wavelength)
			lastSteer = now
		}

		loss, err := largeScale.Loss(tickCtx, cond, tx, rx)
		if err != nil {
			return err
		}
		faded := propagation.Attenuate(txPsd, loss)

		rxPsd, err := model.ComputeRxPsd(tickCtx, faded, tx, rx, txAnt, rxAnt)
		if err != nil {
			return err
		}

		log.Info(tickCtx, "link state",
			logging.Float64("sim_time_s", now.Seconds()),
			logging.Float64("distance_m", tx.Position().DistanceTo(rx.Position())),
			logging.Float64("pathloss_db", loss),
			logging.Float64("rx_power_dbm", dbm(rxPsd.TotalPower())),
		)
		return nil
	})

	log.Info(ctx, "starting simulation",
		logging.String("scenario", scenario.Name()),
		logging.Float64("frequency_ghz", *frequencyGHz),
		logging.Int("elements", *elements),
	)
	if err := runner.Run(ctx, *duration); err != nil {
		fatal("simulation failed: %v", err)
	}
}

// steer points the array toward the target direction.
func steer(a *antenna.PhasedArray, dir geom.Vec3, wavelength float64) {
	a.PointTo(dir.Azimuth(), dir.Zenith(), wavelength)
}

func dbm(powerW float64) float64 {
	if powerW <= 0 {
		return math.Inf(-1)
	}
	return 10*math.Log10(powerW) + 30
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
