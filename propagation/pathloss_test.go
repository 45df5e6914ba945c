package propagation

import (
	"context"
	"math"
	"testing"

	"github.com/signalsfoundry/mmwave-channel-sim/geom"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

type node struct {
	id  spectrum.NodeID
	pos geom.Vec3
}

func (n *node) NodeID() spectrum.NodeID { return n.id }
func (n *node) Position() geom.Vec3     { return n.pos }
func (n *node) Velocity() geom.Vec3     { return geom.Vec3{} }

func newModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	m, err := NewModel(cfg, nil)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestNewModel_Validation(t *testing.T) {
	if _, err := NewModel(Config{Frequency: 200e9, Scenario: UMi{}}, nil); err == nil {
		t.Errorf("expected error for frequency above 150 GHz")
	}
	if _, err := NewModel(Config{Frequency: 0.1e9, Scenario: UMi{}}, nil); err == nil {
		t.Errorf("expected error for frequency below 0.5 GHz")
	}
	if _, err := NewModel(Config{Frequency: 28e9}, nil); err == nil {
		t.Errorf("expected error for missing scenario")
	}
	if _, err := NewModel(Config{Frequency: 28e9, Scenario: UMi{}, FoliageLossDbPerMeter: 11}, nil); err == nil {
		t.Errorf("expected error for out-of-range foliage loss")
	}
}

func TestPathLoss_ReferenceDistance(t *testing.T) {
	m := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}})
	a := &node{id: 1}

	// At and below the 1 m reference the loss reduces to free space at 1 m:
	// 20 log10(4 pi / lambda), about 61.4 dB at 28 GHz.
	want := 20 * math.Log10(4*math.Pi*28e9/lightSpeed)
	for _, d := range []float64{1.0, 0.5, 0.0} {
		b := &node{id: 2, pos: geom.Vec3{X: d}}
		got, err := m.PathLoss(LOS, a, b)
		if err != nil {
			t.Fatalf("PathLoss at %g m: %v", d, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("PathLoss at %g m = %g, want %g", d, got, want)
		}
	}
}

func TestPathLoss_GrowsWithDistance(t *testing.T) {
	for _, name := range []string{"UMi", "UMa", "RMa", "InH", "InF"} {
		scenario, ok := ScenarioByName(name)
		if !ok {
			t.Fatalf("ScenarioByName(%q) not found", name)
		}
		m := newModel(t, Config{Frequency: 28e9, Scenario: scenario})
		a := &node{id: 1, pos: geom.Vec3{Z: 10}}

		prev := -1.0
		for _, d := range []float64{10, 50, 200, 1000} {
			b := &node{id: 2, pos: geom.Vec3{X: d, Z: 1.5}}
			got, err := m.PathLoss(LOS, a, b)
			if err != nil {
				t.Fatalf("%s PathLoss: %v", name, err)
			}
			if got <= prev {
				t.Errorf("%s loss not increasing: %g at %g m after %g", name, got, d, prev)
			}
			prev = got
		}
	}
}

func TestPathLoss_NlosExceedsLos(t *testing.T) {
	for _, name := range []string{"UMi", "UMa", "RMa", "InH", "InF"} {
		scenario, _ := ScenarioByName(name)
		m := newModel(t, Config{Frequency: 28e9, Scenario: scenario})
		a := &node{id: 1, pos: geom.Vec3{Z: 10}}
		b := &node{id: 2, pos: geom.Vec3{X: 100, Z: 1.5}}

		los, err := m.PathLoss(LOS, a, b)
		if err != nil {
			t.Fatalf("%s LOS: %v", name, err)
		}
		nlos, err := m.PathLoss(NLOS, a, b)
		if err != nil {
			t.Fatalf("%s NLOS: %v", name, err)
		}
		if nlos <= los {
			t.Errorf("%s: NLOS loss %g not above LOS loss %g", name, nlos, los)
		}
	}
}

func TestCalibrated(t *testing.T) {
	if got := calibrated(3.2, 2.9, 28e9); math.Abs(got-3.2) > 1e-12 {
		t.Errorf("calibrated at 28 GHz = %g, want the lower anchor 3.2", got)
	}
	if got := calibrated(3.2, 2.9, 140e9); math.Abs(got-2.9) > 1e-12 {
		t.Errorf("calibrated at 140 GHz = %g, want the upper anchor 2.9", got)
	}
	if got := calibrated(3.2, 2.9, 84e9); math.Abs(got-3.05) > 1e-12 {
		t.Errorf("calibrated at the midpoint = %g, want 3.05", got)
	}
	// outside the measured range the nearest anchor holds
	if got := calibrated(3.2, 2.9, 6e9); got != 3.2 {
		t.Errorf("calibrated below range = %g, want 3.2", got)
	}
	if got := calibrated(3.2, 2.9, 145e9); got != 2.9 {
		t.Errorf("calibrated above range = %g, want 2.9", got)
	}
}

func TestShadowing_SameSeedReproduces(t *testing.T) {
	cfg := Config{Frequency: 28e9, Scenario: UMi{}, ShadowingEnabled: true, Seed: 42}
	m1 := newModel(t, cfg)
	m2 := newModel(t, cfg)
	a := &node{id: 1}
	b := &node{id: 2, pos: geom.Vec3{X: 100}}

	for step := 0; step < 5; step++ {
		b.pos.X += 5
		l1, err := m1.Loss(context.Background(), Condition{Los: LOS}, a, b)
		if err != nil {
			t.Fatalf("Loss: %v", err)
		}
		l2, err := m2.Loss(context.Background(), Condition{Los: LOS}, a, b)
		if err != nil {
			t.Fatalf("Loss: %v", err)
		}
		if l1 != l2 {
			t.Errorf("step %d: same seed diverged, %g vs %g", step, l1, l2)
		}
	}
}

func TestShadowing_StationaryLinkKeepsValue(t *testing.T) {
	m := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}, ShadowingEnabled: true, Seed: 7})
	a := &node{id: 1}
	b := &node{id: 2, pos: geom.Vec3{X: 100}}

	first := m.Shadowing(a, b, LOS)
	second := m.Shadowing(a, b, LOS)
	if first != second {
		t.Errorf("stationary link redrew shadowing: %g then %g", first, second)
	}

	// vertical motion alone does not decorrelate
	b.pos.Z += 5
	third := m.Shadowing(a, b, LOS)
	if third != first {
		t.Errorf("vertical motion changed shadowing: %g then %g", first, third)
	}
}

func TestShadowing_SymmetricInArgumentOrder(t *testing.T) {
	m := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}, ShadowingEnabled: true, Seed: 7})
	a := &node{id: 1}
	b := &node{id: 2, pos: geom.Vec3{X: 100}}

	first := m.Shadowing(a, b, LOS)
	swapped := m.Shadowing(b, a, LOS)
	if first != swapped {
		t.Errorf("argument order changed shadowing: %g vs %g", first, swapped)
	}
}

func TestShadowing_ConditionChangeRedraws(t *testing.T) {
	m := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}, ShadowingEnabled: true, Seed: 7})
	a := &node{id: 1}
	b := &node{id: 2, pos: geom.Vec3{X: 100}}

	los := m.Shadowing(a, b, LOS)
	nlos := m.Shadowing(a, b, NLOS)
	if los == nlos {
		t.Errorf("condition change did not redraw shadowing")
	}
}

func TestLoss_AddOns(t *testing.T) {
	ctx := context.Background()
	a := &node{id: 1}
	b := &node{id: 2, pos: geom.Vec3{X: 100}}

	base := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}})
	plain, err := base.Loss(ctx, Condition{Los: LOS}, a, b)
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}

	atmo := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}, AtmosphericAttenuationDbPerMeter: 0.01})
	withAtmo, err := atmo.Loss(ctx, Condition{Los: LOS}, a, b)
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}
	if math.Abs(withAtmo-(plain+1.0)) > 1e-9 {
		t.Errorf("atmospheric loss over 100 m = %g, want %g", withAtmo-plain, 1.0)
	}

	o2i := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}, Seed: 3})
	indoor, err := o2i.Loss(ctx, Condition{Los: LOS, O2I: true}, a, b)
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}
	if indoor == plain {
		t.Errorf("O2I condition added no penetration loss")
	}

	foliage := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}, FoliageLossDbPerMeter: 0.5, Seed: 3})
	leafy, err := foliage.Loss(ctx, Condition{Los: LOS}, a, b)
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}
	if leafy < plain {
		t.Errorf("foliage reduced the loss: %g below %g", leafy, plain)
	}
}

func TestRxPower(t *testing.T) {
	m := newModel(t, Config{Frequency: 28e9, Scenario: UMi{}})
	a := &node{id: 1}
	b := &node{id: 2, pos: geom.Vec3{X: 100}}

	loss, err := m.Loss(context.Background(), Condition{Los: LOS}, a, b)
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}
	rx, err := m.RxPower(context.Background(), 30, Condition{Los: LOS}, a, b)
	if err != nil {
		t.Fatalf("RxPower: %v", err)
	}
	if math.Abs(rx-(30-loss)) > 1e-12 {
		t.Errorf("RxPower = %g, want %g", rx, 30-loss)
	}
}

func TestAttenuate(t *testing.T) {
	psd, err := spectrum.NewUniformPSD(28e9, 100e6, 4, 1.0)
	if err != nil {
		t.Fatalf("NewUniformPSD: %v", err)
	}
	faded := Attenuate(psd, 10)
	for i, v := range faded.Values {
		if math.Abs(v-0.1) > 1e-12 {
			t.Errorf("subcarrier %d = %g, want 0.1", i, v)
		}
	}
	if psd.Values[0] != 1.0 {
		t.Errorf("Attenuate mutated the input PSD")
	}
}
