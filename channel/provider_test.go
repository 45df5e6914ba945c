package channel

import (
	"math"
	"math/cmplx"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/mmwave-channel-sim/antenna"
	"github.com/signalsfoundry/mmwave-channel-sim/geom"
	"github.com/signalsfoundry/mmwave-channel-sim/propagation"
	"github.com/signalsfoundry/mmwave-channel-sim/spectrum"
)

type testMobility struct {
	id  spectrum.NodeID
	pos geom.Vec3
}

func (m *testMobility) NodeID() spectrum.NodeID { return m.id }
func (m *testMobility) Position() geom.Vec3     { return m.pos }
func (m *testMobility) Velocity() geom.Vec3     { return geom.Vec3{} }

type testAntenna struct {
	id uint32
	n  int
}

func (a *testAntenna) ID() uint32       { return a.id }
func (a *testAntenna) NumElements() int { return a.n }
func (a *testAntenna) BeamformingVector() antenna.BeamformingVector {
	w := make(antenna.BeamformingVector, a.n)
	for i := range w {
		w[i] = complex(1/math.Sqrt(float64(a.n)), 0)
	}
	return w
}

type testClock struct {
	now time.Duration
}

func (c *testClock) Now() time.Duration { return c.now }

// countingSampler counts sampling calls around a fixed realization.
type countingSampler struct {
	clusterCalls int
	matrixCalls  int
	inner        FixedSampler
}

func (s *countingSampler) SampleClusters(a, b spectrum.Mobility) (ClusterSet, error) {
	s.clusterCalls++
	return s.inner.SampleClusters(a, b)
}

func (s *countingSampler) SampleMatrix(p *spectrum.ChannelParams, a, b spectrum.Mobility, aAnt, bAnt spectrum.Antenna) ([]*mat.CDense, error) {
	s.matrixCalls++
	return s.inner.SampleMatrix(p, a, b, aAnt, bAnt)
}

// flippableCondition lets a test change the reported condition mid-run.
type flippableCondition struct {
	cond propagation.Condition
}

func (c *flippableCondition) Condition(_, _ spectrum.Mobility) propagation.Condition {
	return c.cond
}

func singleClusterRealization() Realization {
	return Realization{
		Clusters: []*mat.CDense{mat.NewCDense(1, 1, []complex128{1})},
		Delays:   []float64{100e-9},
		Angles: spectrum.Angles{
			AOD: []float64{0}, ZOD: []float64{0},
			AOA: []float64{0}, ZOA: []float64{0},
		},
	}
}

func testPair() (*testMobility, *testMobility, *testAntenna, *testAntenna) {
	a := &testMobility{id: 1}
	b := &testMobility{id: 2, pos: geom.Vec3{X: 100}}
	return a, b, &testAntenna{id: 1, n: 1}, &testAntenna{id: 2, n: 1}
}

func TestNewProvider_Validation(t *testing.T) {
	clock := &testClock{}
	sampler := FixedSampler{Realization: singleClusterRealization()}
	cond := StaticCondition(propagation.Condition{Los: propagation.LOS})
	cfg := Config{Frequency: 28e9}

	if _, err := NewProvider(cfg, nil, cond, clock); err == nil {
		t.Errorf("expected error for nil sampler")
	}
	if _, err := NewProvider(cfg, sampler, nil, clock); err == nil {
		t.Errorf("expected error for nil condition model")
	}
	if _, err := NewProvider(cfg, sampler, cond, nil); err == nil {
		t.Errorf("expected error for nil clock")
	}
	if _, err := NewProvider(Config{}, sampler, cond, clock); err == nil {
		t.Errorf("expected error for zero frequency")
	}
}

func TestProvider_CachesWithinUpdatePeriod(t *testing.T) {
	clock := &testClock{}
	sampler := &countingSampler{inner: FixedSampler{Realization: singleClusterRealization()}}
	p, err := NewProvider(
		Config{Frequency: 28e9, UpdatePeriod: time.Second},
		sampler,
		StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
	)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, aAnt, bAnt := testPair()

	first, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	clock.now = 500 * time.Millisecond
	second, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if first != second {
		t.Errorf("realization regenerated within the coherence period")
	}
	if sampler.clusterCalls != 1 || sampler.matrixCalls != 1 {
		t.Errorf("sampled %d cluster sets and %d matrices, want 1 and 1", sampler.clusterCalls, sampler.matrixCalls)
	}

	// past the coherence period the generation moves on
	clock.now = 1500 * time.Millisecond
	third, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if third == first || third.Generation == first.Generation {
		t.Errorf("expected a fresh realization after the coherence period")
	}
	if sampler.clusterCalls != 2 || sampler.matrixCalls != 2 {
		t.Errorf("sampled %d cluster sets and %d matrices, want 2 and 2", sampler.clusterCalls, sampler.matrixCalls)
	}
}

func TestProvider_ZeroUpdatePeriodKeepsRealization(t *testing.T) {
	clock := &testClock{}
	sampler := &countingSampler{inner: FixedSampler{Realization: singleClusterRealization()}}
	p, err := NewProvider(
		Config{Frequency: 28e9},
		sampler,
		StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
	)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, aAnt, bAnt := testPair()

	if _, err := p.GetChannel(a, b, aAnt, bAnt); err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	clock.now = time.Hour
	if _, err := p.GetChannel(a, b, aAnt, bAnt); err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if sampler.clusterCalls != 1 || sampler.matrixCalls != 1 {
		t.Errorf("sampled %d cluster sets and %d matrices with zero update period, want 1 and 1",
			sampler.clusterCalls, sampler.matrixCalls)
	}
}

func TestProvider_ConditionChangeRegenerates(t *testing.T) {
	clock := &testClock{}
	sampler := &countingSampler{inner: FixedSampler{Realization: singleClusterRealization()}}
	cond := &flippableCondition{cond: propagation.Condition{Los: propagation.LOS}}
	p, err := NewProvider(Config{Frequency: 28e9, UpdatePeriod: time.Hour}, sampler, cond, clock)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, aAnt, bAnt := testPair()

	first, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	cond.cond = propagation.Condition{Los: propagation.NLOS}
	second, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if second.Generation == first.Generation {
		t.Errorf("condition change did not regenerate the realization")
	}
}

func TestProvider_AntennaPairsShareOneRealization(t *testing.T) {
	// A second antenna pair on the same node pair derives its matrix from the
	// existing cluster structure instead of churning the shared params.
	clock := &testClock{}
	sampler := &countingSampler{inner: FixedSampler{Realization: singleClusterRealization()}}
	p, err := NewProvider(
		Config{Frequency: 28e9, UpdatePeriod: time.Hour},
		sampler,
		StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
	)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, _, _ := testPair()
	firstPair := [2]*testAntenna{{id: 1, n: 1}, {id: 2, n: 1}}
	secondPair := [2]*testAntenna{{id: 3, n: 1}, {id: 4, n: 1}}

	m1, err := p.GetChannel(a, b, firstPair[0], firstPair[1])
	if err != nil {
		t.Fatalf("GetChannel first pair: %v", err)
	}
	m2, err := p.GetChannel(a, b, secondPair[0], secondPair[1])
	if err != nil {
		t.Fatalf("GetChannel second pair: %v", err)
	}

	if sampler.clusterCalls != 1 {
		t.Errorf("sampled %d cluster sets for one link, want 1", sampler.clusterCalls)
	}
	if sampler.matrixCalls != 2 {
		t.Errorf("sampled %d matrices for two antenna pairs, want 2", sampler.matrixCalls)
	}
	if m2.Generation != m1.Generation {
		t.Errorf("antenna pairs carry generations %d and %d, want one shared realization", m1.Generation, m2.Generation)
	}

	params, err := p.GetParams(a, b)
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if params.Generation != m1.Generation {
		t.Errorf("params generation %d does not match matrix generation %d", params.Generation, m1.Generation)
	}
}

func TestProvider_StaleMatrixRederivedAfterCrossPairUpdate(t *testing.T) {
	// When another antenna pair triggers a regeneration of the shared params,
	// the first pair's cached matrix belongs to the superseded realization and
	// must be re-derived, never served alongside the newer params.
	clock := &testClock{}
	sampler := &countingSampler{inner: FixedSampler{Realization: singleClusterRealization()}}
	p, err := NewProvider(
		Config{Frequency: 28e9, UpdatePeriod: time.Second},
		sampler,
		StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
	)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, _, _ := testPair()
	firstPair := [2]*testAntenna{{id: 1, n: 1}, {id: 2, n: 1}}
	secondPair := [2]*testAntenna{{id: 3, n: 1}, {id: 4, n: 1}}

	m1, err := p.GetChannel(a, b, firstPair[0], firstPair[1])
	if err != nil {
		t.Fatalf("GetChannel first pair: %v", err)
	}

	// the coherence period expires and the second pair regenerates the link
	clock.now = 1500 * time.Millisecond
	m2, err := p.GetChannel(a, b, secondPair[0], secondPair[1])
	if err != nil {
		t.Fatalf("GetChannel second pair: %v", err)
	}
	if m2.Generation == m1.Generation {
		t.Fatalf("expected the second pair to move the realization on")
	}

	m1b, err := p.GetChannel(a, b, firstPair[0], firstPair[1])
	if err != nil {
		t.Fatalf("GetChannel first pair again: %v", err)
	}
	params, err := p.GetParams(a, b)
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if m1b.Generation != params.Generation {
		t.Errorf("matrix generation %d served with params generation %d", m1b.Generation, params.Generation)
	}
	if m1b == m1 {
		t.Errorf("stale matrix of the superseded realization was served again")
	}
	if sampler.clusterCalls != 2 {
		t.Errorf("sampled %d cluster sets, want 2 (initial and expired)", sampler.clusterCalls)
	}
}

func TestProvider_ParamsFollowMatrixGeneration(t *testing.T) {
	clock := &testClock{}
	p, err := NewProvider(
		Config{Frequency: 28e9},
		FixedSampler{Realization: singleClusterRealization()},
		StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
	)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, aAnt, bAnt := testPair()

	params, err := p.GetParams(a, b)
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if params != nil {
		t.Fatalf("GetParams before any GetChannel = %+v, want nil", params)
	}

	matrix, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	params, err = p.GetParams(a, b)
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if params == nil {
		t.Fatalf("GetParams after GetChannel = nil")
	}
	if params.Generation != matrix.Generation {
		t.Errorf("params generation %d does not match matrix generation %d", params.Generation, matrix.Generation)
	}
	if len(params.Delays) != matrix.NumClusters() {
		t.Errorf("%d delays for %d clusters", len(params.Delays), matrix.NumClusters())
	}
}

func TestProvider_ReciprocalLookups(t *testing.T) {
	clock := &testClock{}
	p, err := NewProvider(
		Config{Frequency: 28e9},
		FixedSampler{Realization: singleClusterRealization()},
		StaticCondition(propagation.Condition{Los: propagation.LOS}),
		clock,
	)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, aAnt, bAnt := testPair()

	forward, err := p.GetChannel(a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	backward, err := p.GetChannel(b, a, bAnt, aAnt)
	if err != nil {
		t.Fatalf("reversed GetChannel: %v", err)
	}
	if forward != backward {
		t.Errorf("reversed lookup produced a different realization")
	}

	// the shared matrix reports its generation order relative to the caller
	if rev, err := forward.Reverse(aAnt.ID(), bAnt.ID()); err != nil || rev {
		t.Errorf("Reverse(a, b) = %v, %v; want false, nil", rev, err)
	}
	if rev, err := forward.Reverse(bAnt.ID(), aAnt.ID()); err != nil || !rev {
		t.Errorf("Reverse(b, a) = %v, %v; want true, nil", rev, err)
	}

	params, err := p.GetParams(b, a)
	if err != nil {
		t.Fatalf("reversed GetParams: %v", err)
	}
	if params == nil {
		t.Errorf("reversed GetParams found no entry")
	}

	p.Reset()
	params, err = p.GetParams(a, b)
	if err != nil {
		t.Fatalf("GetParams after Reset: %v", err)
	}
	if params != nil {
		t.Errorf("Reset left a cached realization behind")
	}
}

func TestProvider_RejectsExcessClusters(t *testing.T) {
	clock := &testClock{}
	broken := FixedSampler{Realization: Realization{
		Clusters: []*mat.CDense{
			mat.NewCDense(1, 1, []complex128{1}),
			mat.NewCDense(1, 1, []complex128{1}),
		},
		Delays: []float64{0},
	}}
	p, err := NewProvider(Config{Frequency: 28e9}, broken,
		StaticCondition(propagation.Condition{Los: propagation.LOS}), clock)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	a, b, aAnt, bAnt := testPair()
	if _, err := p.GetChannel(a, b, aAnt, bAnt); err == nil {
		t.Errorf("expected error for a sampler returning more clusters than delays")
	}
}

func TestLosSampler(t *testing.T) {
	const frequency = 28e9
	a := &testMobility{id: 1, pos: geom.Vec3{Z: 10}}
	b := &testMobility{id: 2, pos: geom.Vec3{X: 30, Z: 10}}
	aAnt, err := antenna.NewUniformLinearArray(1, 2, 0.005)
	if err != nil {
		t.Fatalf("NewUniformLinearArray: %v", err)
	}
	bAnt, err := antenna.NewUniformLinearArray(2, 4, 0.005)
	if err != nil {
		t.Fatalf("NewUniformLinearArray: %v", err)
	}
	sampler := LosSampler{Frequency: frequency}

	cs, err := sampler.SampleClusters(a, b)
	if err != nil {
		t.Fatalf("SampleClusters: %v", err)
	}
	wantDelay := 30.0 / lightSpeed
	if math.Abs(cs.Delays[0]-wantDelay) > 1e-15 {
		t.Errorf("delay = %g, want %g", cs.Delays[0], wantDelay)
	}

	// departure points along +X, arrival back along -X, both level
	if math.Abs(cs.Angles.AOD[0]) > 1e-12 {
		t.Errorf("AOD = %g, want 0", cs.Angles.AOD[0])
	}
	if math.Abs(cs.Angles.AOA[0]-math.Pi) > 1e-12 {
		t.Errorf("AOA = %g, want pi", cs.Angles.AOA[0])
	}
	if math.Abs(cs.Angles.ZOD[0]-math.Pi/2) > 1e-12 {
		t.Errorf("ZOD = %g, want pi/2", cs.Angles.ZOD[0])
	}
	if math.Abs(cs.Angles.ZOA[0]-math.Pi/2) > 1e-12 {
		t.Errorf("ZOA = %g, want pi/2", cs.Angles.ZOA[0])
	}

	params := &spectrum.ChannelParams{
		NodeIDs: [2]spectrum.NodeID{1, 2},
		Delays:  cs.Delays,
		Angles:  cs.Angles,
	}
	clusters, err := sampler.SampleMatrix(params, a, b, aAnt, bAnt)
	if err != nil {
		t.Fatalf("SampleMatrix: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}

	rows, cols := clusters[0].Dims()
	if rows != 4 || cols != 2 {
		t.Errorf("cluster dims %dx%d, want rxElements x txElements = 4x2", rows, cols)
	}

	// unit cluster power: every coefficient on the unit circle
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(cmplx.Abs(clusters[0].At(i, j))-1) > 1e-12 {
				t.Errorf("coefficient (%d,%d) magnitude %g, want 1", i, j, cmplx.Abs(clusters[0].At(i, j)))
			}
		}
	}
}
