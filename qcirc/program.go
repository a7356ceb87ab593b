package qcirc

import (
	"errors"
	"fmt"
)

// A Program is an ordered, immutable sequence of operations over a declared
// number of modes. Programs hold no simulation state; the same Program may be
// run any number of times, against any engine with a matching mode count.
type Program struct {
	modes int
	ops   []Operation
}

// NewProgram validates ops against the declared mode count and returns the
// built program. Mode indices outside [0, modes), malformed operations, and
// literal parameters of the wrong type are all construction errors.
func NewProgram(modes int, ops ...Operation) (*Program, error) {
	if modes <= 0 {
		return nil, fmt.Errorf("qcirc: modes must be positive, got %d", modes)
	}
	for i, op := range ops {
		if err := validateOp(modes, op); err != nil {
			return nil, fmt.Errorf("qcirc: operation %d (%v): %w", i, op.kind, err)
		}
	}
	cp := make([]Operation, len(ops))
	copy(cp, ops)
	return &Program{modes: modes, ops: cp}, nil
}

func validateOp(modes int, op Operation) error {
	sig, ok := opSignatures[op.kind]
	if !ok {
		return errors.New("unknown operation kind")
	}
	if sig.nModes == -1 {
		if len(op.modes) == 0 {
			return errors.New("needs at least one mode")
		}
	} else if len(op.modes) != sig.nModes {
		return fmt.Errorf("wants %d modes, got %d", sig.nModes, len(op.modes))
	}
	seen := make(map[int]bool, len(op.modes))
	for _, m := range op.modes {
		if m < 0 || m >= modes {
			return fmt.Errorf("mode %d outside [0, %d)", m, modes)
		}
		if seen[m] {
			return fmt.Errorf("mode %d repeated", m)
		}
		seen[m] = true
	}
	if len(op.params) != len(sig.slots) {
		return fmt.Errorf("wants %d parameters, got %d", len(sig.slots), len(op.params))
	}
	for k, p := range op.params {
		if p.measured {
			if p.mode < 0 || p.mode >= modes {
				return fmt.Errorf("parameter %d references mode %d outside [0, %d)", k, p.mode, modes)
			}
			continue // value kind is only known at resolution time
		}
		if !fitsSlot(p.lit.Kind(), sig.slots[k]) {
			return fmt.Errorf("parameter %d: %v literal does not fit a %s slot: %w",
				k, p.lit.Kind(), slotName(sig.slots[k]), ErrParamType)
		}
	}
	if op.sel != nil {
		if !op.kind.IsMeasurement() {
			return errors.New("post-selection on a non-measurement")
		}
		if len(op.sel) != len(op.modes) {
			return fmt.Errorf("wants %d post-selected outcomes, got %d", len(op.modes), len(op.sel))
		}
	}
	return nil
}

func slotName(sk slotKind) string {
	switch sk {
	case intSlot:
		return "count"
	case realSlot:
		return "real"
	}
	return "complex"
}

// Modes returns the declared mode count.
func (p *Program) Modes() int { return p.modes }

// Operations returns the program's operations in execution order.
func (p *Program) Operations() []Operation {
	ops := make([]Operation, len(p.ops))
	copy(ops, p.ops)
	return ops
}
