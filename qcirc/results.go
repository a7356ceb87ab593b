package qcirc

import (
	"github.com/tvle2/GKP-sens/qcirc/backend"
)

// Results holds the measurement outcomes recorded during one Run, indexed by
// mode, plus a snapshot of the simulated state after execution. If a mode is
// measured more than once in a run, the last outcome wins.
type Results struct {
	samples []*backend.Value
	state   backend.State
}

func newResults(modes int) *Results {
	return &Results{samples: make([]*backend.Value, modes)}
}

func (r *Results) record(mode int, v backend.Value) {
	r.samples[mode] = &v
}

// Modes returns the number of modes the run covered.
func (r *Results) Modes() int { return len(r.samples) }

// Sample returns the outcome recorded for a mode. The second return is false
// for modes that were not measured during the run.
func (r *Results) Sample(mode int) (backend.Value, bool) {
	if mode < 0 || mode >= len(r.samples) || r.samples[mode] == nil {
		return backend.Value{}, false
	}
	return *r.samples[mode], true
}

// Samples returns the recorded outcomes in mode-index order, nil for modes
// that were not measured.
func (r *Results) Samples() []*backend.Value {
	out := make([]*backend.Value, len(r.samples))
	for i, s := range r.samples {
		if s == nil {
			continue
		}
		v := *s
		out[i] = &v
	}
	return out
}

// State returns the post-execution state snapshot. Gaussian backends return a
// backend.GaussianState exposing reduced means and covariances.
func (r *Results) State() backend.State { return r.state }
