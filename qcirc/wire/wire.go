// Package wire provides a canonical CBOR encoding of circuit programs and
// run results, for archiving experiments and shipping circuits between
// processes. Encoding is deterministic: the same program always produces the
// same bytes.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tvle2/GKP-sens/qcirc"
	"github.com/tvle2/GKP-sens/qcirc/backend"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wire forms. Complex numbers are encoded as [re, im] pairs; value and
// operation kinds as their string names.

type programWire struct {
	Modes int      `cbor:"modes"`
	Ops   []opWire `cbor:"ops"`
}

type opWire struct {
	Kind   string      `cbor:"kind"`
	Modes  []int       `cbor:"modes"`
	Params []paramWire `cbor:"params,omitempty"`
	Select []valueWire `cbor:"select,omitempty"`
	Phase  float64     `cbor:"phase,omitempty"`
}

type paramWire struct {
	// Mode and Scale are set for measurement references, Value for literals.
	Measured bool       `cbor:"measured,omitempty"`
	Mode     int        `cbor:"mode,omitempty"`
	Scale    *float64   `cbor:"scale,omitempty"`
	Value    *valueWire `cbor:"value,omitempty"`
}

type valueWire struct {
	Kind string  `cbor:"kind"`
	Int  int     `cbor:"int,omitempty"`
	Real float64 `cbor:"real,omitempty"`
	Re   float64 `cbor:"re,omitempty"`
	Im   float64 `cbor:"im,omitempty"`
}

type resultsWire struct {
	Modes   int          `cbor:"modes"`
	Samples []*valueWire `cbor:"samples"`
}

// MarshalProgram serializes a Program to CBOR bytes.
func MarshalProgram(p *qcirc.Program) ([]byte, error) {
	w := programWire{Modes: p.Modes()}
	for _, op := range p.Operations() {
		ow := opWire{
			Kind:  op.Kind().String(),
			Modes: op.TargetModes(),
			Phase: op.Phase(),
		}
		for _, par := range op.Params() {
			ow.Params = append(ow.Params, paramToWire(par))
		}
		for _, v := range op.Selection() {
			vw := valueToWire(v)
			ow.Select = append(ow.Select, vw)
		}
		w.Ops = append(w.Ops, ow)
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalProgram deserializes and re-validates a Program from CBOR bytes.
func UnmarshalProgram(data []byte) (*qcirc.Program, error) {
	var w programWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	ops := make([]qcirc.Operation, 0, len(w.Ops))
	for i, ow := range w.Ops {
		kind, err := backend.ParseOpKind(ow.Kind)
		if err != nil {
			return nil, fmt.Errorf("wire: operation %d: %w", i, err)
		}
		var params []qcirc.Param
		for k, pw := range ow.Params {
			par, err := paramFromWire(pw)
			if err != nil {
				return nil, fmt.Errorf("wire: operation %d parameter %d: %w", i, k, err)
			}
			params = append(params, par)
		}
		var sel []backend.Value
		for k, vw := range ow.Select {
			v, err := valueFromWire(&vw)
			if err != nil {
				return nil, fmt.Errorf("wire: operation %d selection %d: %w", i, k, err)
			}
			sel = append(sel, v)
		}
		ops = append(ops, qcirc.NewOperation(kind, ow.Modes, params, sel, ow.Phase))
	}
	p, err := qcirc.NewProgram(w.Modes, ops...)
	if err != nil {
		return nil, fmt.Errorf("wire: rebuilding program: %w", err)
	}
	return p, nil
}

// MarshalResults serializes a run's recorded outcomes to CBOR bytes. The
// state snapshot is not encoded.
func MarshalResults(r *qcirc.Results) ([]byte, error) {
	w := resultsWire{
		Modes:   r.Modes(),
		Samples: make([]*valueWire, r.Modes()),
	}
	for i, s := range r.Samples() {
		if s == nil {
			continue
		}
		vw := valueToWire(*s)
		w.Samples[i] = &vw
	}
	return cborEncMode.Marshal(&w)
}

// Samples are what survive a results round trip; decoding yields the
// per-mode outcome list rather than a full Results.
func UnmarshalResults(data []byte) (samples []*backend.Value, err error) {
	var w resultsWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("wire: unmarshal results: %w", err)
	}
	samples = make([]*backend.Value, w.Modes)
	for i, vw := range w.Samples {
		if vw == nil {
			continue
		}
		v, err := valueFromWire(vw)
		if err != nil {
			return nil, fmt.Errorf("wire: sample for mode %d: %w", i, err)
		}
		if i < len(samples) {
			samples[i] = &v
		}
	}
	return samples, nil
}

func paramToWire(p qcirc.Param) paramWire {
	if p.IsMeasured() {
		// The scale is always explicit: zero is a legal value and must
		// survive the round trip.
		sc := p.ScaleFactor()
		return paramWire{Measured: true, Mode: p.Mode(), Scale: &sc}
	}
	vw := valueToWire(p.Literal())
	return paramWire{Value: &vw}
}

func paramFromWire(pw paramWire) (qcirc.Param, error) {
	if pw.Measured {
		scale := 1.0
		if pw.Scale != nil {
			scale = *pw.Scale
		}
		return qcirc.MeasuredScale(pw.Mode, scale), nil
	}
	if pw.Value == nil {
		return qcirc.Param{}, fmt.Errorf("literal parameter without a value")
	}
	v, err := valueFromWire(pw.Value)
	if err != nil {
		return qcirc.Param{}, err
	}
	switch v.Kind() {
	case backend.IntValue:
		n, _ := v.AsInt()
		return qcirc.Int(n), nil
	case backend.RealValue:
		r, _ := v.AsReal()
		return qcirc.Real(r), nil
	}
	return qcirc.Complex(v.AsComplex()), nil
}

func valueToWire(v backend.Value) valueWire {
	switch v.Kind() {
	case backend.IntValue:
		n, _ := v.AsInt()
		return valueWire{Kind: "int", Int: n}
	case backend.RealValue:
		r, _ := v.AsReal()
		return valueWire{Kind: "real", Real: r}
	}
	z := v.AsComplex()
	return valueWire{Kind: "complex", Re: real(z), Im: imag(z)}
}

func valueFromWire(vw *valueWire) (backend.Value, error) {
	switch vw.Kind {
	case "int":
		return backend.Int(vw.Int), nil
	case "real":
		return backend.Real(vw.Real), nil
	case "complex":
		return backend.Complex(complex(vw.Re, vw.Im)), nil
	}
	return backend.Value{}, fmt.Errorf("unknown value kind %q", vw.Kind)
}
