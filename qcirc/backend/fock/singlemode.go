package fock

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat/combin"
)

// Single-mode operators are dense cutoff x cutoff matrices over the truncated
// Fock basis, built by exponentiating their generators. The truncation is
// hard: matrix elements that would reach states at or above the cutoff are
// simply absent.

type cmatrix [][]complex128

func newCMatrix(n int) cmatrix {
	m := make(cmatrix, n)
	for i := range m {
		m[i] = make([]complex128, n)
	}
	return m
}

func eye(n int) cmatrix {
	m := newCMatrix(n)
	for i := range m {
		m[i][i] = 1
	}
	return m
}

func (m cmatrix) mul(o cmatrix) cmatrix {
	n := len(m)
	r := newCMatrix(n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			if m[i][k] == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

func (m cmatrix) add(o cmatrix) cmatrix {
	n := len(m)
	r := newCMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r[i][j] = m[i][j] + o[i][j]
		}
	}
	return r
}

func (m cmatrix) scale(s complex128) cmatrix {
	n := len(m)
	r := newCMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r[i][j] = s * m[i][j]
		}
	}
	return r
}

// norm1 returns the maximum absolute column sum.
func (m cmatrix) norm1() float64 {
	var max float64
	for j := range m {
		var s float64
		for i := range m {
			s += cmplx.Abs(m[i][j])
		}
		if s > max {
			max = s
		}
	}
	return max
}

// expm computes the matrix exponential by scaling and squaring with a Taylor
// series. Adequate for the small, well-scaled generators used here.
func expm(k cmatrix) cmatrix {
	n := len(k)
	s := 0
	if nrm := k.norm1(); nrm > 0.5 {
		s = int(math.Ceil(math.Log2(nrm / 0.5)))
	}
	t := k.scale(complex(1/math.Pow(2, float64(s)), 0))

	const terms = 24
	r := eye(n)
	term := eye(n)
	for i := 1; i <= terms; i++ {
		term = term.mul(t).scale(complex(1/float64(i), 0))
		r = r.add(term)
	}
	for i := 0; i < s; i++ {
		r = r.mul(r)
	}
	return r
}

// lower returns the annihilation operator a: a|n> = sqrt(n)|n-1>.
func lower(cutoff int) cmatrix {
	m := newCMatrix(cutoff)
	for n := 1; n < cutoff; n++ {
		m[n-1][n] = complex(math.Sqrt(float64(n)), 0)
	}
	return m
}

// raise returns the creation operator adag truncated at the cutoff.
func raise(cutoff int) cmatrix {
	m := newCMatrix(cutoff)
	for n := 1; n < cutoff; n++ {
		m[n][n-1] = complex(math.Sqrt(float64(n)), 0)
	}
	return m
}

// displacementMatrix returns exp(alpha*adag - conj(alpha)*a).
func displacementMatrix(cutoff int, alpha complex128) cmatrix {
	k := raise(cutoff).scale(alpha).add(lower(cutoff).scale(-cmplx.Conj(alpha)))
	return expm(k)
}

// squeezeMatrix returns exp((conj(z)*a*a - z*adag*adag)/2) with z = r e^{i phi}.
func squeezeMatrix(cutoff int, r, phi float64) cmatrix {
	z := cmplx.Rect(r, phi)
	a := lower(cutoff)
	ad := raise(cutoff)
	k := a.mul(a).scale(cmplx.Conj(z) / 2).add(ad.mul(ad).scale(-z / 2))
	return expm(k)
}

// bsCoefficients returns the number-conserving beamsplitter amplitudes
// B[n][m][np] = <np, n+m-np| BS(theta, phi) |n, m> for the convention
// a1 -> t a1 + r a2, a2 -> -conj(r) a1 + t a2, t = cos(theta),
// r = e^{i phi} sin(theta). Output states past the cutoff are dropped by the
// caller.
func bsCoefficients(cutoff int, theta, phi float64) [][][]complex128 {
	t := complex(math.Cos(theta), 0)
	r := cmplx.Rect(math.Sin(theta), phi)
	rc := -cmplx.Conj(r)

	fact := make([]float64, 2*cutoff)
	fact[0] = 1
	for i := 1; i < len(fact); i++ {
		fact[i] = fact[i-1] * float64(i)
	}

	b := make([][][]complex128, cutoff)
	for n := 0; n < cutoff; n++ {
		b[n] = make([][]complex128, cutoff)
		for m := 0; m < cutoff; m++ {
			ntot := n + m
			b[n][m] = make([]complex128, ntot+1)
			for np := 0; np <= ntot; np++ {
				mp := ntot - np
				var sum complex128
				for i := 0; i <= n; i++ {
					j := np - i
					if j < 0 || j > m {
						continue
					}
					c := complex(float64(combin.Binomial(n, i)*combin.Binomial(m, j)), 0)
					sum += c * cpow(t, i+m-j) * cpow(r, n-i) * cpow(rc, j)
				}
				scale := math.Sqrt(fact[np] * fact[mp] / (fact[n] * fact[m]))
				b[n][m][np] = complex(scale, 0) * sum
			}
		}
	}
	return b
}

func cpow(z complex128, n int) complex128 {
	r := complex128(1)
	for i := 0; i < n; i++ {
		r *= z
	}
	return r
}
