package qcirc

import (
	"fmt"

	"github.com/tvle2/GKP-sens/qcirc/backend"
)

// Run executes p against the engine's backend, one operation at a time in
// declared order, and returns the outcomes recorded during this run together
// with a snapshot of the post-execution state. A failed run leaves the
// backend in the state reached before the failing operation.
func (e *Engine) Run(p *Program) (*Results, error) {
	if p.Modes() != e.b.Modes() {
		return nil, fmt.Errorf("qcirc: program declares %d modes, engine has %d", p.Modes(), e.b.Modes())
	}
	res := newResults(p.Modes())
	for i, op := range p.ops {
		if op.kind.IsMeasurement() {
			if err := e.runMeasurement(op, res); err != nil {
				return nil, fmt.Errorf("qcirc: operation %d (%v): %w", i, op.kind, err)
			}
			continue
		}
		if err := e.runGate(op); err != nil {
			return nil, fmt.Errorf("qcirc: operation %d (%v): %w", i, op.kind, err)
		}
	}
	state, err := e.b.State()
	if err != nil {
		return nil, fmt.Errorf("qcirc: snapshotting state: %w", err)
	}
	res.state = state
	return res, nil
}

func (e *Engine) runGate(op Operation) error {
	args, err := e.resolveParams(op)
	if err != nil {
		return err
	}
	return e.b.ApplyGate(backend.Gate{
		Kind:  op.kind,
		Modes: op.modes,
		Args:  args,
	})
}

func (e *Engine) runMeasurement(op Operation, res *Results) error {
	vals, err := e.b.Measure(backend.Measurement{
		Kind:   op.kind,
		Modes:  op.modes,
		Phase:  op.phase,
		Select: op.sel,
	})
	if err != nil {
		return err
	}
	if len(vals) != len(op.modes) {
		return fmt.Errorf("backend returned %d outcomes for %d modes", len(vals), len(op.modes))
	}
	for k, mode := range op.modes {
		e.measured[mode] = vals[k]
		res.record(mode, vals[k])
	}
	return nil
}

// resolveParams replaces measurement references with the concrete values
// recorded for their modes, enforcing the slot type rules: integer and real
// outcomes fit everywhere, complex outcomes only fit complex slots.
func (e *Engine) resolveParams(op Operation) ([]backend.Value, error) {
	if len(op.params) == 0 {
		return nil, nil
	}
	sig := opSignatures[op.kind]
	args := make([]backend.Value, len(op.params))
	for k, p := range op.params {
		if !p.measured {
			args[k] = p.lit
			continue
		}
		v, ok := e.measured[p.mode]
		if !ok {
			return nil, fmt.Errorf("parameter %d: mode %d: %w", k, p.mode, ErrUnmeasured)
		}
		v = v.Scale(p.scale)
		if !fitsSlot(v.Kind(), sig.slots[k]) {
			return nil, fmt.Errorf("parameter %d: %v outcome of mode %d does not fit a %s slot: %w",
				k, v.Kind(), p.mode, slotName(sig.slots[k]), ErrParamType)
		}
		args[k] = v
	}
	return args, nil
}
