package qcirc

import (
	"github.com/tvle2/GKP-sens/qcirc/backend"
)

// A Param is a gate argument: either a numeric literal, or a reference to the
// outcome recorded for a previously measured mode, resolved by the engine at
// execution time.
type Param struct {
	measured bool
	lit      backend.Value
	mode     int
	scale    float64
}

// Int returns a count-valued literal parameter.
func Int(n int) Param { return Param{lit: backend.Int(n)} }

// Real returns a real-valued literal parameter.
func Real(x float64) Param { return Param{lit: backend.Real(x)} }

// Complex returns a complex-valued literal parameter.
func Complex(z complex128) Param { return Param{lit: backend.Complex(z)} }

// Measured returns a parameter that resolves to the outcome recorded for
// mode. The mode must have been measured earlier in execution order, in this
// run or a prior run of the same engine session.
func Measured(mode int) Param { return Param{measured: true, mode: mode, scale: 1} }

// MeasuredScale is Measured with the resolved value multiplied by scale.
// Integer outcomes scale to real values.
func MeasuredScale(mode int, scale float64) Param {
	return Param{measured: true, mode: mode, scale: scale}
}

// IsMeasured reports whether p is a measurement reference.
func (p Param) IsMeasured() bool { return p.measured }

// Mode returns the referenced mode of a measurement reference.
func (p Param) Mode() int { return p.mode }

// ScaleFactor returns the multiplier applied to a resolved reference.
func (p Param) ScaleFactor() float64 { return p.scale }

// Literal returns the literal value of a non-reference parameter.
func (p Param) Literal() backend.Value { return p.lit }

// An Operation is one step of a Program: a state preparation, a unitary gate,
// or a measurement over one or more modes. Operations are immutable values;
// validation happens when a Program is built.
type Operation struct {
	kind   backend.OpKind
	modes  []int
	params []Param
	sel    []backend.Value
	phase  float64
}

// Kind returns the operation kind.
func (op Operation) Kind() backend.OpKind { return op.kind }

// TargetModes returns the modes the operation acts on, in order.
func (op Operation) TargetModes() []int {
	m := make([]int, len(op.modes))
	copy(m, op.modes)
	return m
}

// Params returns the operation's parameters, in slot order.
func (op Operation) Params() []Param {
	p := make([]Param, len(op.params))
	copy(p, op.params)
	return p
}

// Selection returns the post-selected outcomes of a measurement, or nil when
// the measurement samples freely.
func (op Operation) Selection() []backend.Value {
	if op.sel == nil {
		return nil
	}
	s := make([]backend.Value, len(op.sel))
	copy(s, op.sel)
	return s
}

// Phase returns the homodyne quadrature angle; zero for other kinds.
func (op Operation) Phase() float64 { return op.phase }

// FockState prepares a mode in the n-photon number state. Discrete backends
// only; the mode must not have been touched since the last vacuum.
func FockState(mode, n int) Operation {
	return Operation{kind: backend.PrepFock, modes: []int{mode}, params: []Param{Int(n)}}
}

// Coherent prepares a mode in the coherent state of amplitude alpha.
func Coherent(mode int, alpha complex128) Operation {
	return Operation{kind: backend.PrepCoherent, modes: []int{mode}, params: []Param{Complex(alpha)}}
}

// Squeezed prepares a mode in a squeezed vacuum state with magnitude r and
// squeezing angle phi.
func Squeezed(mode int, r, phi float64) Operation {
	return Operation{kind: backend.PrepSqueezed, modes: []int{mode}, params: []Param{Real(r), Real(phi)}}
}

// Rgate rotates a mode's phase space by phi.
func Rgate(mode int, phi Param) Operation {
	return Operation{kind: backend.Rotation, modes: []int{mode}, params: []Param{phi}}
}

// Sgate squeezes a mode by magnitude r at angle phi.
func Sgate(mode int, r, phi float64) Operation {
	return Operation{kind: backend.Squeezing, modes: []int{mode}, params: []Param{Real(r), Real(phi)}}
}

// Dgate displaces a mode by the complex amplitude alpha.
func Dgate(mode int, alpha Param) Operation {
	return Operation{kind: backend.Displacement, modes: []int{mode}, params: []Param{alpha}}
}

// Xgate shifts a mode's x quadrature by x.
func Xgate(mode int, x Param) Operation {
	return Operation{kind: backend.XShift, modes: []int{mode}, params: []Param{x}}
}

// Zgate shifts a mode's p quadrature by z.
func Zgate(mode int, z Param) Operation {
	return Operation{kind: backend.ZShift, modes: []int{mode}, params: []Param{z}}
}

// Kgate applies a Kerr interaction of strength kappa. Discrete backends only.
func Kgate(mode int, kappa Param) Operation {
	return Operation{kind: backend.Kerr, modes: []int{mode}, params: []Param{kappa}}
}

// BSgate mixes two modes on a beamsplitter with mixing angle theta and phase
// phi. The interaction conserves total photon number.
func BSgate(m1, m2 int, theta, phi float64) Operation {
	return Operation{kind: backend.Beamsplitter, modes: []int{m1, m2}, params: []Param{Real(theta), Real(phi)}}
}

// MeasureFock counts photons on each of the given modes. Outcomes are
// integer-valued; measured modes reset to vacuum.
func MeasureFock(modes ...int) Operation {
	return Operation{kind: backend.MeasureFock, modes: modes}
}

// MeasureFockSelect post-selects the photon counts of the given modes to
// want, one entry per mode. Post-selecting an outcome with zero probability
// fails the run with backend.ErrZeroProbability.
func MeasureFockSelect(want []int, modes ...int) Operation {
	sel := make([]backend.Value, len(want))
	for i, n := range want {
		sel[i] = backend.Int(n)
	}
	return Operation{kind: backend.MeasureFock, modes: modes, sel: sel}
}

// MeasureHomodyne measures the x_phi quadrature of a mode. The outcome is
// real-valued.
func MeasureHomodyne(mode int, phi float64) Operation {
	return Operation{kind: backend.MeasureHomodyne, modes: []int{mode}, phase: phi}
}

// MeasureHomodyneSelect post-selects a homodyne outcome. Zero-probability
// detection is not guaranteed for continuous outcomes; conditioning proceeds
// with whatever value is given.
func MeasureHomodyneSelect(mode int, phi, value float64) Operation {
	return Operation{
		kind:  backend.MeasureHomodyne,
		modes: []int{mode},
		phase: phi,
		sel:   []backend.Value{backend.Real(value)},
	}
}

// MeasureHeterodyne measures both quadratures of a mode at once. The outcome
// is complex-valued and may only feed complex-valued gate parameters.
func MeasureHeterodyne(mode int) Operation {
	return Operation{kind: backend.MeasureHeterodyne, modes: []int{mode}}
}

// MeasureHeterodyneSelect post-selects a heterodyne outcome.
func MeasureHeterodyneSelect(mode int, value complex128) Operation {
	return Operation{
		kind:  backend.MeasureHeterodyne,
		modes: []int{mode},
		sel:   []backend.Value{backend.Complex(value)},
	}
}

// NewOperation assembles an operation from its parts. It exists for decoders
// that rebuild programs from a serialized form; the typed constructors above
// are the usual way in. Validation happens when the operation is passed to
// NewProgram.
func NewOperation(kind backend.OpKind, modes []int, params []Param, sel []backend.Value, phase float64) Operation {
	return Operation{kind: kind, modes: modes, params: params, sel: sel, phase: phase}
}

// Parameter slot types. Integer and real values fit real slots; complex
// values only fit complex slots.
type slotKind int

const (
	intSlot slotKind = iota
	realSlot
	complexSlot
)

type opSignature struct {
	// nModes is the required mode count; -1 means one or more.
	nModes int
	slots  []slotKind
}

var opSignatures = map[backend.OpKind]opSignature{
	backend.PrepFock:          {nModes: 1, slots: []slotKind{intSlot}},
	backend.PrepCoherent:      {nModes: 1, slots: []slotKind{complexSlot}},
	backend.PrepSqueezed:      {nModes: 1, slots: []slotKind{realSlot, realSlot}},
	backend.Rotation:          {nModes: 1, slots: []slotKind{realSlot}},
	backend.Squeezing:         {nModes: 1, slots: []slotKind{realSlot, realSlot}},
	backend.Displacement:      {nModes: 1, slots: []slotKind{complexSlot}},
	backend.XShift:            {nModes: 1, slots: []slotKind{realSlot}},
	backend.ZShift:            {nModes: 1, slots: []slotKind{realSlot}},
	backend.Kerr:              {nModes: 1, slots: []slotKind{realSlot}},
	backend.Beamsplitter:      {nModes: 2, slots: []slotKind{realSlot, realSlot}},
	backend.MeasureFock:       {nModes: -1},
	backend.MeasureHomodyne:   {nModes: 1},
	backend.MeasureHeterodyne: {nModes: 1},
}

// fitsSlot reports whether a value of kind vk may occupy a slot.
func fitsSlot(vk backend.ValueKind, sk slotKind) bool {
	switch sk {
	case intSlot:
		return vk == backend.IntValue
	case realSlot:
		return vk != backend.ComplexValue
	}
	return true
}
