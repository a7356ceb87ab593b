package wire

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/tvle2/GKP-sens/qcirc"
	"github.com/tvle2/GKP-sens/qcirc/backend"
	"github.com/tvle2/GKP-sens/qcirc/backend/fock"
)

func buildProgram(t *testing.T) *qcirc.Program {
	t.Helper()
	p, err := qcirc.NewProgram(2,
		qcirc.FockState(0, 2),
		qcirc.FockState(1, 3),
		qcirc.BSgate(0, 1, 0.7, 0.3),
		qcirc.MeasureFockSelect([]int{0}, 0),
		qcirc.MeasureFock(1),
		qcirc.Xgate(0, qcirc.MeasuredScale(1, 0.5)),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	return p
}

// A decoded program must behave exactly like the original, which we check by
// executing both against identically-seeded engines.
func TestProgramRoundTripPreservesBehavior(t *testing.T) {
	p := buildProgram(t)
	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	q, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}

	run := func(prog *qcirc.Program) []*backend.Value {
		e, err := qcirc.NewEngine(qcirc.EngineOpts{
			Backend: fock.Name,
			Modes:   2,
			Cutoff:  8,
			Rand:    rand.New(rand.NewSource(21)),
		})
		if err != nil {
			t.Fatalf("Building engine: %v", err)
		}
		res, err := e.Run(prog)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res.Samples()
	}

	a, b := run(p), run(q)
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			t.Fatalf("mode %d: measured-ness differs after round trip", i)
		}
		if a[i] == nil {
			continue
		}
		na, _ := a[i].AsInt()
		nb, _ := b[i].AsInt()
		if na != nb {
			t.Errorf("mode %d: outcome %d != %d after round trip", i, na, nb)
		}
	}
}

func TestProgramEncodingIsDeterministic(t *testing.T) {
	p := buildProgram(t)
	d1, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	d2, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("two encodings of the same program differ")
	}

	q, err := UnmarshalProgram(d1)
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}
	d3, err := MarshalProgram(q)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	if !bytes.Equal(d1, d3) {
		t.Error("re-encoding a decoded program changed the bytes")
	}
}

// Zero is a legal reference scale and must not decay to the default of 1.
func TestMeasuredScaleZeroRoundTrip(t *testing.T) {
	p, err := qcirc.NewProgram(2,
		qcirc.MeasureHomodyne(0, 0),
		qcirc.Xgate(1, qcirc.MeasuredScale(0, 0)),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	q, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}
	par := q.Operations()[1].Params()[0]
	if !par.IsMeasured() {
		t.Fatal("parameter lost its measurement reference after round trip")
	}
	if sc := par.ScaleFactor(); sc != 0 {
		t.Errorf("scale after round trip = %v, want 0", sc)
	}
}

func TestUnmarshalProgramRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalProgram([]byte{0xff, 0x00, 0x12}); err == nil {
		t.Error("UnmarshalProgram of garbage succeeded, want error")
	}
}

func TestResultsRoundTrip(t *testing.T) {
	e, err := qcirc.NewEngine(qcirc.EngineOpts{
		Backend: fock.Name,
		Modes:   3,
		Cutoff:  6,
		Rand:    rand.New(rand.NewSource(9)),
	})
	if err != nil {
		t.Fatalf("Building engine: %v", err)
	}
	p, err := qcirc.NewProgram(3,
		qcirc.FockState(0, 1),
		qcirc.FockState(2, 2),
		qcirc.MeasureFock(0, 2),
	)
	if err != nil {
		t.Fatalf("Building program: %v", err)
	}
	res, err := e.Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := MarshalResults(res)
	if err != nil {
		t.Fatalf("MarshalResults: %v", err)
	}
	samples, err := UnmarshalResults(data)
	if err != nil {
		t.Fatalf("UnmarshalResults: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("len(samples) = %d, want 3", len(samples))
	}
	if samples[1] != nil {
		t.Error("unmeasured mode 1 has an outcome after round trip")
	}
	for _, mode := range []int{0, 2} {
		want, _ := res.Sample(mode)
		if samples[mode] == nil {
			t.Fatalf("mode %d lost its outcome", mode)
		}
		na, _ := want.AsInt()
		nb, _ := samples[mode].AsInt()
		if na != nb {
			t.Errorf("mode %d: outcome %d != %d after round trip", mode, na, nb)
		}
	}
}
