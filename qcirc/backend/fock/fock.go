// Package fock implements a discrete, Fock-basis state-vector backend. The
// joint state of n modes is a dense vector of cutoff^n complex amplitudes;
// photon-count measurements are exact over the truncated basis, which is what
// makes zero-probability post-selection detectable here.
package fock

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/tvle2/GKP-sens/qcirc/backend"
)

// Name is the registry name of this backend.
const Name = "fock"

func init() {
	backend.Register(Name, func(opts backend.Options) (backend.Backend, error) {
		return newSimulator(opts), nil
	})
}

// vacuumTol is how much amplitude weight a mode may hold outside its vacuum
// level and still be treated as unprepared.
const vacuumTol = 1e-9

type simulator struct {
	modes  int
	cutoff int
	rand   *rand.Rand

	amps    []complex128
	strides []int
}

func newSimulator(opts backend.Options) *simulator {
	size := 1
	strides := make([]int, opts.Modes)
	for k := opts.Modes - 1; k >= 0; k-- {
		strides[k] = size
		size *= opts.Cutoff
	}
	s := &simulator{
		modes:   opts.Modes,
		cutoff:  opts.Cutoff,
		rand:    opts.Rand,
		amps:    make([]complex128, size),
		strides: strides,
	}
	s.amps[0] = 1
	return s
}

func (s *simulator) Name() string { return Name }
func (s *simulator) Modes() int   { return s.modes }

func (s *simulator) Reset() error {
	for i := range s.amps {
		s.amps[i] = 0
	}
	s.amps[0] = 1
	return nil
}

func (s *simulator) digit(i, mode int) int {
	return (i / s.strides[mode]) % s.cutoff
}

// ApplyGate implements backend.Backend.
func (s *simulator) ApplyGate(g backend.Gate) error {
	switch g.Kind {
	case backend.PrepFock:
		n, ok := g.Args[0].AsInt()
		if !ok {
			return fmt.Errorf("fock: %v wants an integer photon number, got %v", g.Kind, g.Args[0])
		}
		if n < 0 || n >= s.cutoff {
			return fmt.Errorf("fock: photon number %d outside truncation [0, %d)", n, s.cutoff)
		}
		return s.prepare(g.Modes[0], func(mode int) error {
			s.shiftLevel(mode, n)
			return nil
		})
	case backend.PrepCoherent:
		alpha := g.Args[0].AsComplex()
		return s.prepare(g.Modes[0], func(mode int) error {
			s.applySingleMode(mode, displacementMatrix(s.cutoff, alpha))
			return nil
		})
	case backend.PrepSqueezed:
		r, _ := g.Args[0].AsReal()
		phi, _ := g.Args[1].AsReal()
		return s.prepare(g.Modes[0], func(mode int) error {
			s.applySingleMode(mode, squeezeMatrix(s.cutoff, r, phi))
			return nil
		})
	case backend.Rotation:
		phi, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("fock: %v wants a real angle, got %v", g.Kind, g.Args[0])
		}
		s.applyDiagonal(g.Modes[0], func(n int) complex128 {
			return cmplx.Rect(1, phi*float64(n))
		})
		return nil
	case backend.Kerr:
		kappa, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("fock: %v wants a real strength, got %v", g.Kind, g.Args[0])
		}
		s.applyDiagonal(g.Modes[0], func(n int) complex128 {
			return cmplx.Rect(1, kappa*float64(n*n))
		})
		return nil
	case backend.Displacement:
		s.applySingleMode(g.Modes[0], displacementMatrix(s.cutoff, g.Args[0].AsComplex()))
		return nil
	case backend.XShift:
		// x shift by d is a displacement by d/2 (hbar = 2).
		d, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("fock: %v wants a real shift, got %v", g.Kind, g.Args[0])
		}
		s.applySingleMode(g.Modes[0], displacementMatrix(s.cutoff, complex(d/2, 0)))
		return nil
	case backend.ZShift:
		d, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("fock: %v wants a real shift, got %v", g.Kind, g.Args[0])
		}
		s.applySingleMode(g.Modes[0], displacementMatrix(s.cutoff, complex(0, d/2)))
		return nil
	case backend.Squeezing:
		r, _ := g.Args[0].AsReal()
		phi, _ := g.Args[1].AsReal()
		s.applySingleMode(g.Modes[0], squeezeMatrix(s.cutoff, r, phi))
		return nil
	case backend.Beamsplitter:
		theta, _ := g.Args[0].AsReal()
		phi, _ := g.Args[1].AsReal()
		s.applyBeamsplitter(g.Modes[0], g.Modes[1], theta, phi)
		return nil
	}
	return fmt.Errorf("fock: %v: %w", g.Kind, backend.ErrUnsupported)
}

// prepare runs prep on a mode after checking that the mode is still in
// vacuum. Preparing an already-populated mode of a pure joint state would
// require discarding correlations, which a state vector cannot express.
func (s *simulator) prepare(mode int, prep func(mode int) error) error {
	// Compare against the total squared norm, not 1: a truncated
	// beamsplitter elsewhere in the register may have dropped weight
	// past the cutoff, and that must not taint untouched modes.
	var w, total float64
	for i, a := range s.amps {
		p := real(a)*real(a) + imag(a)*imag(a)
		total += p
		if s.digit(i, mode) == 0 {
			w += p
		}
	}
	if w < (1-vacuumTol)*total {
		return fmt.Errorf("fock: preparation on non-vacuum mode %d", mode)
	}
	return prep(mode)
}

// shiftLevel moves all amplitude weight of a vacuum mode to level n.
// Sub-tolerance residue on other levels of the mode is discarded.
func (s *simulator) shiftLevel(mode, n int) {
	if n == 0 {
		return
	}
	stride := s.strides[mode]
	out := make([]complex128, len(s.amps))
	for i, a := range s.amps {
		if a == 0 || s.digit(i, mode) != 0 {
			continue
		}
		out[i+n*stride] = a
	}
	s.amps = out
}

func (s *simulator) applyDiagonal(mode int, phase func(n int) complex128) {
	ph := make([]complex128, s.cutoff)
	for n := range ph {
		ph[n] = phase(n)
	}
	for i := range s.amps {
		s.amps[i] *= ph[s.digit(i, mode)]
	}
}

func (s *simulator) applySingleMode(mode int, u cmatrix) {
	stride := s.strides[mode]
	out := make([]complex128, len(s.amps))
	for i, a := range s.amps {
		if a == 0 {
			continue
		}
		n := s.digit(i, mode)
		base := i - n*stride
		for np := 0; np < s.cutoff; np++ {
			if u[np][n] == 0 {
				continue
			}
			out[base+np*stride] += u[np][n] * a
		}
	}
	s.amps = out
}

// applyBeamsplitter mixes two modes with the number-conserving coefficient
// table. Output states past the truncation are discarded, so inputs with
// n1+n2 >= cutoff lose norm.
func (s *simulator) applyBeamsplitter(m1, m2 int, theta, phi float64) {
	b := bsCoefficients(s.cutoff, theta, phi)
	s1, s2 := s.strides[m1], s.strides[m2]
	out := make([]complex128, len(s.amps))
	for i, a := range s.amps {
		if a == 0 {
			continue
		}
		n := s.digit(i, m1)
		m := s.digit(i, m2)
		base := i - n*s1 - m*s2
		for np := 0; np <= n+m; np++ {
			mp := n + m - np
			if np >= s.cutoff || mp >= s.cutoff {
				continue
			}
			c := b[n][m][np]
			if c == 0 {
				continue
			}
			out[base+np*s1+mp*s2] += c * a
		}
	}
	s.amps = out
}

// Measure implements backend.Backend. Only photon counting is supported;
// quadrature measurements belong to the Gaussian backend.
func (s *simulator) Measure(m backend.Measurement) ([]Value, error) {
	if m.Kind != backend.MeasureFock {
		return nil, fmt.Errorf("fock: %v: %w", m.Kind, backend.ErrUnsupported)
	}
	outs := make([]Value, 0, len(m.Modes))
	for k, mode := range m.Modes {
		var want = -1
		if m.Select != nil {
			n, ok := m.Select[k].AsInt()
			if !ok {
				return nil, fmt.Errorf("fock: post-selected count for mode %d must be an integer, got %v", mode, m.Select[k])
			}
			want = n
		}
		n, err := s.measureCount(mode, want)
		if err != nil {
			return nil, err
		}
		outs = append(outs, backend.Int(n))
	}
	return outs, nil
}

func (s *simulator) measureCount(mode, want int) (int, error) {
	probs := make([]float64, s.cutoff)
	for i, a := range s.amps {
		if a == 0 {
			continue
		}
		probs[s.digit(i, mode)] += real(a)*real(a) + imag(a)*imag(a)
	}
	total := floats.Sum(probs)

	var n int
	if want >= 0 {
		if want >= s.cutoff || probs[want] < backend.ZeroTol*total {
			return 0, fmt.Errorf("fock: post-selecting %d on mode %d: %w", want, mode, backend.ErrZeroProbability)
		}
		n = want
	} else {
		x := s.rand.Float64() * total
		for n = 0; n < s.cutoff-1; n++ {
			x -= probs[n]
			if x < 0 {
				break
			}
		}
	}

	// Project onto the outcome and send the mode back to vacuum.
	stride := s.strides[mode]
	norm := complex(math.Sqrt(probs[n]), 0)
	out := make([]complex128, len(s.amps))
	for i, a := range s.amps {
		if a == 0 || s.digit(i, mode) != n {
			continue
		}
		out[i-n*stride] = a / norm
	}
	s.amps = out
	return n, nil
}

// State implements backend.Backend.
func (s *simulator) State() (backend.State, error) {
	amps := make([]complex128, len(s.amps))
	copy(amps, s.amps)
	strides := make([]int, len(s.strides))
	copy(strides, s.strides)
	return &State{modes: s.modes, cutoff: s.cutoff, amps: amps, strides: strides}, nil
}

// Value is an alias kept short for internal signatures.
type Value = backend.Value

// A State is an immutable snapshot of the joint Fock-basis state vector.
type State struct {
	modes   int
	cutoff  int
	amps    []complex128
	strides []int
}

// Modes implements backend.State.
func (st *State) Modes() int { return st.modes }

// Cutoff returns the truncation dimension of the snapshot.
func (st *State) Cutoff() int { return st.cutoff }

// Amplitude returns the amplitude of the basis state |ns[0], ns[1], ...>.
func (st *State) Amplitude(ns ...int) (complex128, error) {
	if len(ns) != st.modes {
		return 0, fmt.Errorf("fock: want %d mode occupations, got %d", st.modes, len(ns))
	}
	idx := 0
	for k, n := range ns {
		if n < 0 || n >= st.cutoff {
			return 0, fmt.Errorf("fock: occupation %d outside truncation [0, %d)", n, st.cutoff)
		}
		idx += n * st.strides[k]
	}
	return st.amps[idx], nil
}

// Prob returns the marginal probability of counting n photons on a mode.
func (st *State) Prob(mode, n int) (float64, error) {
	if mode < 0 || mode >= st.modes {
		return 0, fmt.Errorf("fock: mode %d outside [0, %d)", mode, st.modes)
	}
	if n < 0 || n >= st.cutoff {
		return 0, fmt.Errorf("fock: occupation %d outside truncation [0, %d)", n, st.cutoff)
	}
	var p float64
	for i, a := range st.amps {
		if (i/st.strides[mode])%st.cutoff == n {
			p += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return p, nil
}
