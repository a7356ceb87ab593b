// Package qcirc provides a control layer for photonic circuit simulation: it
// builds circuit programs, executes them against a pluggable numerical
// backend, and records measurement outcomes so that later gates can be
// conditioned on them.
//
// The numerical simulation itself lives behind the backend.Backend interface;
// this package owns operation ordering, parameter resolution, and the
// session-level measurement record.
package qcirc

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/tvle2/GKP-sens/qcirc/backend"
)

var (
	// ErrUnmeasured reports a parameter reference to a mode with no recorded
	// measurement outcome in the current engine session.
	ErrUnmeasured = errors.New("reference to unmeasured mode")

	// ErrParamType reports a value fed to a parameter slot that cannot hold
	// its type, e.g. a complex heterodyne outcome into a real-valued slot.
	ErrParamType = errors.New("parameter type mismatch")
)

// EngineOpts packages together the arguments necessary to construct an
// Engine. Backend, Modes, and Rand have no defaults and must be set.
type EngineOpts struct {
	// Backend names a registered backend, e.g. fock.Name or gaussian.Name.
	// The implementing package must be imported so that it registers itself.
	Backend string

	// Modes is the number of modes in the simulation. Every program run on
	// the engine must declare exactly this many.
	Modes int

	// Cutoff is the Fock truncation dimension for discrete backends.
	// Defaults to backend.DefaultCutoff.
	Cutoff int

	// Rand supplies measurement sampling randomness. Seed it for
	// reproducible experiments. Must be non-nil.
	Rand *rand.Rand
}

// An Engine binds a numerical backend and executes programs against it,
// strictly in operation order. State persists across runs: a second Run
// continues from where the first left off, and measurement outcomes recorded
// in earlier runs stay referenceable until Reset.
//
// Engines are not safe for concurrent use.
type Engine struct {
	b        backend.Backend
	measured map[int]backend.Value
}

// NewEngine returns a new Engine configured in accordance with opts, or an
// error if the options are nonsensical.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Backend == "" {
		return nil, errors.New("qcirc: must provide Backend")
	}
	if opts.Modes <= 0 {
		return nil, fmt.Errorf("qcirc: modes must be positive, got %d", opts.Modes)
	}
	if opts.Rand == nil {
		return nil, errors.New("qcirc: must provide Rand")
	}
	b, err := backend.New(opts.Backend, backend.Options{
		Modes:  opts.Modes,
		Cutoff: opts.Cutoff,
		Rand:   opts.Rand,
	})
	if err != nil {
		return nil, fmt.Errorf("qcirc: constructing backend: %w", err)
	}
	return &Engine{
		b:        b,
		measured: make(map[int]backend.Value),
	}, nil
}

// BackendName returns the name of the bound backend.
func (e *Engine) BackendName() string { return e.b.Name() }

// Modes returns the engine's mode count.
func (e *Engine) Modes() int { return e.b.Modes() }

// Reset returns every mode to vacuum and clears the session's measurement
// record.
func (e *Engine) Reset() error {
	if err := e.b.Reset(); err != nil {
		return fmt.Errorf("qcirc: resetting backend: %w", err)
	}
	e.measured = make(map[int]backend.Value)
	return nil
}
