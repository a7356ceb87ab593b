// Package backend defines the numerical simulation surface consumed by the
// circuit engine: tagged values, resolved operations, the Backend interface,
// and a registry of named backend implementations.
package backend

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrZeroProbability reports post-selection on a discrete outcome whose
	// conditioning probability is (numerically) zero under the current state.
	ErrZeroProbability = errors.New("zero-probability measurement")

	// ErrUnsupported reports an operation the backend cannot represent.
	ErrUnsupported = errors.New("unsupported operation")
)

// ZeroTol is the probability below which a discrete post-selection is treated
// as a zero-probability event.
const ZeroTol = 1e-12

// DefaultCutoff is the Fock truncation dimension used when Options.Cutoff is
// left zero.
const DefaultCutoff = 10

// A State is a snapshot of the simulated state after execution. Concrete
// backends expose richer views; Gaussian-family backends implement
// GaussianState.
type State interface {
	// Modes returns the number of modes the snapshot covers.
	Modes() int
}

// A GaussianState exposes the first and second moments of a Gaussian state.
type GaussianState interface {
	State

	// MeanCov returns the reduced mean vector and covariance matrix for the
	// given mode subset, in xpxp order, hbar = 2 convention.
	MeanCov(modes []int) ([]float64, *mat.SymDense, error)
}

// A Backend holds simulated quantum state for a fixed number of modes and
// mutates it one operation at a time. Implementations are not safe for
// concurrent use; the engine applies operations strictly sequentially.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Modes returns the number of modes in the simulation.
	Modes() int

	// ApplyGate applies a preparation or unitary gate to the current state.
	ApplyGate(g Gate) error

	// Measure performs a measurement, returning one value per measured mode.
	// Measured modes are reset to vacuum after the outcome is recorded.
	Measure(m Measurement) ([]Value, error)

	// Reset returns every mode to the vacuum state.
	Reset() error

	// State returns a snapshot of the current state. Mutating the backend
	// afterwards does not affect the snapshot.
	State() (State, error)
}

// Options configures backend construction.
type Options struct {
	// Modes is the number of modes to simulate. Must be positive.
	Modes int

	// Cutoff is the Fock-space truncation dimension. Backends that do not
	// truncate ignore it. Defaults to DefaultCutoff.
	Cutoff int

	// Rand supplies all measurement sampling randomness. Must be non-nil.
	Rand *rand.Rand
}

// A Factory constructs a backend from options.
type Factory func(opts Options) (Backend, error)

var factories = map[string]Factory{}

// Register makes a backend constructor available under name. It panics on a
// duplicate name; registration happens from init functions.
func Register(name string, f Factory) {
	if _, ok := factories[name]; ok {
		panic(fmt.Sprintf("backend: duplicate registration of %q", name))
	}
	factories[name] = f
}

// New constructs the named backend. The name must have been registered,
// typically by importing the implementing package.
func New(name string, opts Options) (Backend, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("backend: unknown backend %q (known: %v)", name, List())
	}
	if opts.Modes <= 0 {
		return nil, fmt.Errorf("backend: modes must be positive, got %d", opts.Modes)
	}
	if opts.Rand == nil {
		return nil, errors.New("backend: must provide Rand")
	}
	if opts.Cutoff == 0 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.Cutoff < 2 {
		return nil, fmt.Errorf("backend: cutoff must be at least 2, got %d", opts.Cutoff)
	}
	return f(opts)
}

// List returns the registered backend names in sorted order.
func List() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
