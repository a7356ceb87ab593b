package qcirc

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/tvle2/GKP-sens/qcirc/backend"
	"github.com/tvle2/GKP-sens/qcirc/backend/fock"
	"github.com/tvle2/GKP-sens/qcirc/backend/gaussian"
)

func newFockEngine(t *testing.T, modes, cutoff int, seed int64) *Engine {
	t.Helper()
	e, err := NewEngine(EngineOpts{
		Backend: fock.Name,
		Modes:   modes,
		Cutoff:  cutoff,
		Rand:    rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		t.Fatalf("Building engine: %v", err)
	}
	return e
}

func newGaussianEngine(t *testing.T, modes int, seed int64) *Engine {
	t.Helper()
	e, err := NewEngine(EngineOpts{
		Backend: gaussian.Name,
		Modes:   modes,
		Rand:    rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		t.Fatalf("Building engine: %v", err)
	}
	return e
}

func TestEngineOptionValidation(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	if _, err := NewEngine(EngineOpts{Modes: 1, Rand: r}); err == nil {
		t.Error("NewEngine without Backend succeeded, want error")
	}
	if _, err := NewEngine(EngineOpts{Backend: fock.Name, Rand: r}); err == nil {
		t.Error("NewEngine without Modes succeeded, want error")
	}
	if _, err := NewEngine(EngineOpts{Backend: fock.Name, Modes: 1}); err == nil {
		t.Error("NewEngine without Rand succeeded, want error")
	}
	if _, err := NewEngine(EngineOpts{Backend: "no-such", Modes: 1, Rand: r}); err == nil {
		t.Error("NewEngine with unknown backend succeeded, want error")
	}
}

func TestRunRejectsModeMismatch(t *testing.T) {
	e := newFockEngine(t, 2, 6, 1)
	p, err := NewProgram(1, FockState(0, 1))
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	if _, err := e.Run(p); err == nil {
		t.Error("Run with mismatched mode counts succeeded, want error")
	}
}

// A beamsplitter conserves total photon number, so the two measured counts
// must always sum to the total input count.
func TestBeamsplitterConservesPhotonNumber(t *testing.T) {
	e := newFockEngine(t, 2, 8, 7)
	p, err := NewProgram(2,
		FockState(0, 2),
		FockState(1, 3),
		BSgate(0, 1, 0.7, 0.3),
		MeasureFock(0, 1),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	// Measured modes return to vacuum, so the same engine can run the
	// program repeatedly.
	for i := 0; i < 50; i++ {
		res, err := e.Run(p)
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		n0, ok0 := sampleInt(res, 0)
		n1, ok1 := sampleInt(res, 1)
		if !ok0 || !ok1 {
			t.Fatalf("Run %d: missing count outcomes", i)
		}
		if n0+n1 != 5 {
			t.Fatalf("Run %d: counts (%d, %d) sum to %d, want 5", i, n0, n1, n0+n1)
		}
	}
}

func sampleInt(res *Results, mode int) (int, bool) {
	v, ok := res.Sample(mode)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Post-selecting zero photons on one output of a (2,3) input forces all five
// photons into the other output.
func TestPostSelectionForcesComplement(t *testing.T) {
	e := newFockEngine(t, 2, 8, 11)
	p, err := NewProgram(2,
		FockState(0, 2),
		FockState(1, 3),
		BSgate(0, 1, 0.9, 0),
		MeasureFockSelect([]int{0}, 0),
		MeasureFock(1),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	res, err := e.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n, _ := sampleInt(res, 0); n != 0 {
		t.Errorf("mode 0 count = %d, want 0", n)
	}
	if n, _ := sampleInt(res, 1); n != 5 {
		t.Errorf("mode 1 count = %d, want 5", n)
	}
}

func TestPostSelectionZeroProbabilityFails(t *testing.T) {
	e := newFockEngine(t, 2, 8, 3)
	// Only five photons enter; six can never leave.
	p, err := NewProgram(2,
		FockState(0, 2),
		FockState(1, 3),
		BSgate(0, 1, 0.7, 0),
		MeasureFockSelect([]int{6}, 0),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	if _, err := e.Run(p); !errors.Is(err, backend.ErrZeroProbability) {
		t.Errorf("Run error = %v, want ErrZeroProbability", err)
	}
}

// Conditioning is deterministic: two sessions with different sampling seeds
// but identical post-selected outcomes must land in the same state.
func TestConditioningIsDeterministic(t *testing.T) {
	p, err := NewProgram(2,
		Squeezed(0, 1.0, 0),
		BSgate(0, 1, math.Pi/4, 0),
		MeasureHomodyneSelect(0, 0, 0.3),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	meanCov := func(seed int64) ([]float64, []float64) {
		e := newGaussianEngine(t, 2, seed)
		res, err := e.Run(p)
		if err != nil {
			t.Fatalf("Run (seed %d): %v", seed, err)
		}
		gs, ok := res.State().(backend.GaussianState)
		if !ok {
			t.Fatalf("state snapshot is %T, want GaussianState", res.State())
		}
		mean, cov, err := gs.MeanCov([]int{1})
		if err != nil {
			t.Fatalf("MeanCov: %v", err)
		}
		return mean, []float64{cov.At(0, 0), cov.At(0, 1), cov.At(1, 1)}
	}
	m1, c1 := meanCov(1)
	m2, c2 := meanCov(999)
	for i := range m1 {
		if math.Abs(m1[i]-m2[i]) > 1e-12 {
			t.Errorf("conditioned means differ at %d: %v vs %v", i, m1, m2)
		}
	}
	for i := range c1 {
		if math.Abs(c1[i]-c2[i]) > 1e-12 {
			t.Errorf("conditioned covariances differ at %d: %v vs %v", i, c1, c2)
		}
	}
}

// A measurement-conditioned parameter must resolve to exactly the recorded
// outcome: shifting vacuum by half the post-selected homodyne value puts the
// mean right there.
func TestFeedforwardResolvesRecordedValue(t *testing.T) {
	e := newGaussianEngine(t, 2, 5)
	const v = 1.25
	p, err := NewProgram(2,
		Squeezed(0, 0.5, 0),
		MeasureHomodyneSelect(0, 0, v),
		Xgate(1, MeasuredScale(0, 0.5)),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	res, err := e.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, ok := res.Sample(0)
	if !ok {
		t.Fatal("no outcome recorded for mode 0")
	}
	if x, _ := got.AsReal(); x != v {
		t.Errorf("recorded outcome = %v, want %v", x, v)
	}
	gs := res.State().(backend.GaussianState)
	mean, _, err := gs.MeanCov([]int{1})
	if err != nil {
		t.Fatalf("MeanCov: %v", err)
	}
	if math.Abs(mean[0]-0.5*v) > 1e-12 {
		t.Errorf("mode 1 x mean = %v, want %v", mean[0], 0.5*v)
	}
}

func TestUnmeasuredReferenceFails(t *testing.T) {
	e := newGaussianEngine(t, 2, 5)
	p, err := NewProgram(2, Xgate(1, Measured(0)))
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	if _, err := e.Run(p); !errors.Is(err, ErrUnmeasured) {
		t.Errorf("Run error = %v, want ErrUnmeasured", err)
	}
}

func TestComplexOutcomeRejectedByRealSlot(t *testing.T) {
	e := newGaussianEngine(t, 2, 5)
	p, err := NewProgram(2,
		MeasureHeterodyne(0),
		Xgate(1, Measured(0)),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	if _, err := e.Run(p); !errors.Is(err, ErrParamType) {
		t.Errorf("Run error = %v, want ErrParamType", err)
	}
}

func TestComplexOutcomeAcceptedByComplexSlot(t *testing.T) {
	e := newGaussianEngine(t, 2, 5)
	p, err := NewProgram(2,
		MeasureHeterodyneSelect(0, 0.5+0.25i),
		Dgate(1, Measured(0)),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	res, err := e.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	gs := res.State().(backend.GaussianState)
	mean, _, err := gs.MeanCov([]int{1})
	if err != nil {
		t.Fatalf("MeanCov: %v", err)
	}
	if math.Abs(mean[0]-1.0) > 1e-12 || math.Abs(mean[1]-0.5) > 1e-12 {
		t.Errorf("mode 1 mean = %v, want [1 0.5]", mean)
	}
}

func TestIntegerOutcomeAcceptedByRealSlot(t *testing.T) {
	e := newFockEngine(t, 2, 6, 5)
	p, err := NewProgram(2,
		FockState(0, 1),
		MeasureFock(0),
		Xgate(1, Measured(0)),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	if _, err := e.Run(p); err != nil {
		t.Errorf("Run: %v", err)
	}
}

// Measurement outcomes recorded in one run stay referenceable in the next run
// of the same session, and Reset forgets them.
func TestSessionRecordSpansRuns(t *testing.T) {
	e := newFockEngine(t, 2, 6, 5)
	p1, err := NewProgram(2, FockState(0, 1), MeasureFock(0))
	if err != nil {
		t.Fatalf("Building p1: %v", err)
	}
	p2, err := NewProgram(2, Xgate(1, Measured(0)))
	if err != nil {
		t.Fatalf("Building p2: %v", err)
	}
	if _, err := e.Run(p1); err != nil {
		t.Fatalf("Run p1: %v", err)
	}
	if _, err := e.Run(p2); err != nil {
		t.Fatalf("Run p2: %v", err)
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := e.Run(p2); !errors.Is(err, ErrUnmeasured) {
		t.Errorf("Run p2 after Reset = %v, want ErrUnmeasured", err)
	}
}

func TestResultsReportUnmeasuredModes(t *testing.T) {
	e := newFockEngine(t, 2, 6, 5)
	p, err := NewProgram(2, FockState(0, 1), MeasureFock(0))
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	res, err := e.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := res.Sample(1); ok {
		t.Error("Sample(1) reported an outcome for an unmeasured mode")
	}
	samples := res.Samples()
	if len(samples) != 2 || samples[0] == nil || samples[1] != nil {
		t.Errorf("Samples() = %v, want outcome for mode 0 only", samples)
	}
}
