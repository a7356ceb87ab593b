// Package gaussian implements a continuous-variable backend that tracks the
// first and second moments of a Gaussian state: a mean vector and covariance
// matrix over the quadratures (x_0, p_0, x_1, p_1, ...), hbar = 2 convention,
// so the vacuum covariance is the identity. Gates are symplectic maps;
// homodyne and heterodyne measurements condition the remaining modes with the
// usual Schur-complement update.
//
// Conditioning on a continuous outcome never has exactly zero probability
// under a Gaussian density, so post-selection here does not detect impossible
// outcomes; that detection is only guaranteed for photon counting on the
// discrete backend.
package gaussian

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/tvle2/GKP-sens/qcirc/backend"
)

// Name is the registry name of this backend.
const Name = "gaussian"

func init() {
	backend.Register(Name, func(opts backend.Options) (backend.Backend, error) {
		return newSimulator(opts), nil
	})
}

type simulator struct {
	modes int
	rand  *rand.Rand

	mean *mat.VecDense
	cov  *mat.Dense
}

func newSimulator(opts backend.Options) *simulator {
	n := 2 * opts.Modes
	s := &simulator{
		modes: opts.Modes,
		rand:  opts.Rand,
		mean:  mat.NewVecDense(n, nil),
		cov:   mat.NewDense(n, n, nil),
	}
	for i := 0; i < n; i++ {
		s.cov.Set(i, i, 1)
	}
	return s
}

func (s *simulator) Name() string { return Name }
func (s *simulator) Modes() int   { return s.modes }

func (s *simulator) Reset() error {
	n := 2 * s.modes
	s.mean.Zero()
	s.cov.Zero()
	for i := 0; i < n; i++ {
		s.cov.Set(i, i, 1)
	}
	return nil
}

// ApplyGate implements backend.Backend.
func (s *simulator) ApplyGate(g backend.Gate) error {
	switch g.Kind {
	case backend.PrepCoherent:
		s.resetMode(g.Modes[0])
		s.displace(g.Modes[0], g.Args[0].AsComplex())
		return nil
	case backend.PrepSqueezed:
		r, _ := g.Args[0].AsReal()
		phi, _ := g.Args[1].AsReal()
		s.resetMode(g.Modes[0])
		s.applySymplectic(squeezeBlock(r, phi), g.Modes[0])
		return nil
	case backend.Rotation:
		phi, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("gaussian: %v wants a real angle, got %v", g.Kind, g.Args[0])
		}
		s.applySymplectic(rotationBlock(phi), g.Modes[0])
		return nil
	case backend.Squeezing:
		r, _ := g.Args[0].AsReal()
		phi, _ := g.Args[1].AsReal()
		s.applySymplectic(squeezeBlock(r, phi), g.Modes[0])
		return nil
	case backend.Displacement:
		s.displace(g.Modes[0], g.Args[0].AsComplex())
		return nil
	case backend.XShift:
		d, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("gaussian: %v wants a real shift, got %v", g.Kind, g.Args[0])
		}
		s.mean.SetVec(2*g.Modes[0], s.mean.AtVec(2*g.Modes[0])+d)
		return nil
	case backend.ZShift:
		d, ok := g.Args[0].AsReal()
		if !ok {
			return fmt.Errorf("gaussian: %v wants a real shift, got %v", g.Kind, g.Args[0])
		}
		s.mean.SetVec(2*g.Modes[0]+1, s.mean.AtVec(2*g.Modes[0]+1)+d)
		return nil
	case backend.Beamsplitter:
		theta, _ := g.Args[0].AsReal()
		phi, _ := g.Args[1].AsReal()
		s.applySymplectic(beamsplitterBlock(theta, phi), g.Modes...)
		return nil
	}
	return fmt.Errorf("gaussian: %v: %w", g.Kind, backend.ErrUnsupported)
}

// displace shifts the mean of a mode by the phase-space point of alpha.
func (s *simulator) displace(mode int, alpha complex128) {
	s.mean.SetVec(2*mode, s.mean.AtVec(2*mode)+2*real(alpha))
	s.mean.SetVec(2*mode+1, s.mean.AtVec(2*mode+1)+2*imag(alpha))
}

// resetMode returns one mode to vacuum, dropping its correlations.
func (s *simulator) resetMode(mode int) {
	n := 2 * s.modes
	x, p := 2*mode, 2*mode+1
	s.mean.SetVec(x, 0)
	s.mean.SetVec(p, 0)
	for i := 0; i < n; i++ {
		s.cov.Set(i, x, 0)
		s.cov.Set(x, i, 0)
		s.cov.Set(i, p, 0)
		s.cov.Set(p, i, 0)
	}
	s.cov.Set(x, x, 1)
	s.cov.Set(p, p, 1)
}

// applySymplectic embeds a 2k x 2k symplectic block acting on the given modes
// into the full phase space and applies it to both moments.
func (s *simulator) applySymplectic(block *mat.Dense, modes ...int) {
	n := 2 * s.modes
	big := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		big.Set(i, i, 1)
	}
	rows := make([]int, 0, 2*len(modes))
	for _, m := range modes {
		rows = append(rows, 2*m, 2*m+1)
	}
	for i, bi := range rows {
		big.Set(bi, bi, 0)
		for j, bj := range rows {
			big.Set(bi, bj, block.At(i, j))
		}
	}

	var tmp, cov mat.Dense
	tmp.Mul(big, s.cov)
	cov.Mul(&tmp, big.T())
	s.cov.Copy(&cov)

	var mean mat.VecDense
	mean.MulVec(big, s.mean)
	s.mean.CopyVec(&mean)
}

func rotationBlock(phi float64) *mat.Dense {
	c, sn := math.Cos(phi), math.Sin(phi)
	return mat.NewDense(2, 2, []float64{c, -sn, sn, c})
}

func squeezeBlock(r, phi float64) *mat.Dense {
	ch, sh := math.Cosh(r), math.Sinh(r)
	c, sn := math.Cos(phi), math.Sin(phi)
	return mat.NewDense(2, 2, []float64{
		ch - c*sh, -sn * sh,
		-sn * sh, ch + c*sh,
	})
}

// beamsplitterBlock realizes a1 -> t a1 + r a2, a2 -> -conj(r) a1 + t a2 on
// the quadratures, t = cos(theta), r = e^{i phi} sin(theta).
func beamsplitterBlock(theta, phi float64) *mat.Dense {
	t := math.Cos(theta)
	rc := math.Sin(theta) * math.Cos(phi)
	rs := math.Sin(theta) * math.Sin(phi)
	return mat.NewDense(4, 4, []float64{
		t, 0, rc, -rs,
		0, t, rs, rc,
		-rc, -rs, t, 0,
		rs, -rc, 0, t,
	})
}

// Measure implements backend.Backend. Photon counting is not representable in
// the moment formalism and is rejected.
func (s *simulator) Measure(m backend.Measurement) ([]backend.Value, error) {
	switch m.Kind {
	case backend.MeasureHomodyne:
		outs := make([]backend.Value, 0, len(m.Modes))
		for k, mode := range m.Modes {
			var sel *float64
			if m.Select != nil {
				v, ok := m.Select[k].AsReal()
				if !ok {
					return nil, fmt.Errorf("gaussian: post-selected quadrature for mode %d must be real, got %v", mode, m.Select[k])
				}
				sel = &v
			}
			outs = append(outs, backend.Real(s.homodyne(mode, m.Phase, sel)))
		}
		return outs, nil
	case backend.MeasureHeterodyne:
		outs := make([]backend.Value, 0, len(m.Modes))
		for k, mode := range m.Modes {
			var sel *complex128
			if m.Select != nil {
				v := m.Select[k].AsComplex()
				sel = &v
			}
			outs = append(outs, backend.Complex(s.heterodyne(mode, sel)))
		}
		return outs, nil
	}
	return nil, fmt.Errorf("gaussian: %v: %w", m.Kind, backend.ErrUnsupported)
}

// homodyne measures the x_phi quadrature of a mode, conditions the rest of
// the state on the outcome, and resets the mode to vacuum.
func (s *simulator) homodyne(mode int, phase float64, sel *float64) float64 {
	if phase != 0 {
		s.applySymplectic(rotationBlock(-phase), mode)
	}
	xi := 2 * mode
	mu := s.mean.AtVec(xi)
	sigma := s.cov.At(xi, xi)

	var v float64
	if sel != nil {
		v = *sel
	} else {
		v = mu + math.Sqrt(sigma)*s.rand.NormFloat64()
	}

	n := 2 * s.modes
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		c[i] = s.cov.At(i, xi)
	}
	for i := 0; i < n; i++ {
		if i == xi || i == xi+1 {
			continue
		}
		s.mean.SetVec(i, s.mean.AtVec(i)+c[i]*(v-mu)/sigma)
		for j := 0; j < n; j++ {
			if j == xi || j == xi+1 {
				continue
			}
			s.cov.Set(i, j, s.cov.At(i, j)-c[i]*c[j]/sigma)
		}
	}
	s.resetMode(mode)
	return v
}

// heterodyne samples both quadratures of a mode against a vacuum-added
// covariance, conditions the rest of the state, and resets the mode.
func (s *simulator) heterodyne(mode int, sel *complex128) complex128 {
	xi := 2 * mode
	// Measured covariance is the mode block plus vacuum noise.
	m11 := s.cov.At(xi, xi) + 1
	m12 := s.cov.At(xi, xi+1)
	m22 := s.cov.At(xi+1, xi+1) + 1
	mux := s.mean.AtVec(xi)
	mup := s.mean.AtVec(xi + 1)

	var vx, vp float64
	if sel != nil {
		vx = 2 * real(*sel)
		vp = 2 * imag(*sel)
	} else {
		// Two-dimensional Cholesky sample.
		l11 := math.Sqrt(m11)
		l21 := m12 / l11
		l22 := math.Sqrt(m22 - l21*l21)
		z1, z2 := s.rand.NormFloat64(), s.rand.NormFloat64()
		vx = mux + l11*z1
		vp = mup + l21*z1 + l22*z2
	}

	det := m11*m22 - m12*m12
	i11, i12, i22 := m22/det, -m12/det, m11/det
	dx, dp := vx-mux, vp-mup

	n := 2 * s.modes
	cx := make([]float64, n)
	cp := make([]float64, n)
	for i := 0; i < n; i++ {
		cx[i] = s.cov.At(i, xi)
		cp[i] = s.cov.At(i, xi+1)
	}
	for i := 0; i < n; i++ {
		if i == xi || i == xi+1 {
			continue
		}
		gx := cx[i]*i11 + cp[i]*i12
		gp := cx[i]*i12 + cp[i]*i22
		s.mean.SetVec(i, s.mean.AtVec(i)+gx*dx+gp*dp)
		for j := 0; j < n; j++ {
			if j == xi || j == xi+1 {
				continue
			}
			s.cov.Set(i, j, s.cov.At(i, j)-gx*cx[j]-gp*cp[j])
		}
	}
	s.resetMode(mode)
	return complex(vx/2, vp/2)
}

// State implements backend.Backend.
func (s *simulator) State() (backend.State, error) {
	mean := make([]float64, 2*s.modes)
	for i := range mean {
		mean[i] = s.mean.AtVec(i)
	}
	cov := mat.NewDense(2*s.modes, 2*s.modes, nil)
	cov.Copy(s.cov)
	return &State{modes: s.modes, mean: mean, cov: cov}, nil
}

// A State is an immutable snapshot of a Gaussian state's moments.
type State struct {
	modes int
	mean  []float64
	cov   *mat.Dense
}

// Modes implements backend.State.
func (st *State) Modes() int { return st.modes }

// MeanCov implements backend.GaussianState: the reduced mean and covariance
// of the requested modes, rows and columns ordered as the modes are given.
func (st *State) MeanCov(modes []int) ([]float64, *mat.SymDense, error) {
	idx := make([]int, 0, 2*len(modes))
	for _, m := range modes {
		if m < 0 || m >= st.modes {
			return nil, nil, fmt.Errorf("gaussian: mode %d outside [0, %d)", m, st.modes)
		}
		idx = append(idx, 2*m, 2*m+1)
	}
	mean := make([]float64, len(idx))
	cov := mat.NewSymDense(len(idx), nil)
	for i, a := range idx {
		mean[i] = st.mean[a]
		for j, b := range idx {
			if j < i {
				continue
			}
			cov.SetSym(i, j, (st.cov.At(a, b)+st.cov.At(b, a))/2)
		}
	}
	return mean, cov, nil
}
