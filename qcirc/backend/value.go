package backend

import "fmt"

// A ValueKind tags the type of a measured or literal value.
type ValueKind int

const (
	IntValue ValueKind = iota
	RealValue
	ComplexValue
)

// String implements fmt.Stringer.
func (k ValueKind) String() string {
	switch k {
	case IntValue:
		return "int"
	case RealValue:
		return "real"
	case ComplexValue:
		return "complex"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// A Value is a tagged numeric value: a photon count, a quadrature reading, or
// a complex amplitude. Values are immutable after creation.
type Value struct {
	kind ValueKind
	i    int
	r    float64
	c    complex128
}

// Int returns a count-valued Value.
func Int(n int) Value { return Value{kind: IntValue, i: n} }

// Real returns a real-valued Value.
func Real(x float64) Value { return Value{kind: RealValue, r: x} }

// Complex returns a complex-valued Value.
func Complex(z complex128) Value { return Value{kind: ComplexValue, c: z} }

// Kind returns the value's type tag.
func (v Value) Kind() ValueKind { return v.kind }

// AsInt returns the value as an integer count. It is only meaningful for
// IntValue values; the second return reports whether the conversion is exact.
func (v Value) AsInt() (int, bool) {
	if v.kind != IntValue {
		return 0, false
	}
	return v.i, true
}

// AsReal returns the value as a float64. Complex values do not convert; the
// second return reports success.
func (v Value) AsReal() (float64, bool) {
	switch v.kind {
	case IntValue:
		return float64(v.i), true
	case RealValue:
		return v.r, true
	}
	return 0, false
}

// AsComplex returns the value widened to complex128. Every value kind
// converts.
func (v Value) AsComplex() complex128 {
	switch v.kind {
	case IntValue:
		return complex(float64(v.i), 0)
	case RealValue:
		return complex(v.r, 0)
	}
	return v.c
}

// Scale returns v multiplied by a real factor. Integer values become real.
func (v Value) Scale(s float64) Value {
	if s == 1 {
		return v
	}
	switch v.kind {
	case IntValue:
		return Real(float64(v.i) * s)
	case RealValue:
		return Real(v.r * s)
	}
	return Complex(v.c * complex(s, 0))
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case IntValue:
		return fmt.Sprintf("%d", v.i)
	case RealValue:
		return fmt.Sprintf("%g", v.r)
	}
	return fmt.Sprintf("%g", v.c)
}

// An OpKind identifies a circuit operation understood by backends.
type OpKind int

const (
	PrepFock OpKind = iota
	PrepCoherent
	PrepSqueezed
	Rotation
	Squeezing
	Displacement
	XShift
	ZShift
	Kerr
	Beamsplitter
	MeasureFock
	MeasureHomodyne
	MeasureHeterodyne
)

var opKindNames = map[OpKind]string{
	PrepFock:          "PrepFock",
	PrepCoherent:      "PrepCoherent",
	PrepSqueezed:      "PrepSqueezed",
	Rotation:          "Rotation",
	Squeezing:         "Squeezing",
	Displacement:      "Displacement",
	XShift:            "XShift",
	ZShift:            "ZShift",
	Kerr:              "Kerr",
	Beamsplitter:      "Beamsplitter",
	MeasureFock:       "MeasureFock",
	MeasureHomodyne:   "MeasureHomodyne",
	MeasureHeterodyne: "MeasureHeterodyne",
}

// String implements fmt.Stringer.
func (k OpKind) String() string {
	if s, ok := opKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// ParseOpKind is the inverse of OpKind.String.
func ParseOpKind(s string) (OpKind, error) {
	for k, n := range opKindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind %q", s)
}

// IsMeasurement reports whether k records an outcome rather than applying a
// unitary or preparation.
func (k OpKind) IsMeasurement() bool {
	return k == MeasureFock || k == MeasureHomodyne || k == MeasureHeterodyne
}

// A Gate is a preparation or unitary operation with all parameters already
// resolved to concrete values. Backends validate kind, arity, and argument
// types and return ErrUnsupported for operations they cannot represent.
type Gate struct {
	Kind  OpKind
	Modes []int
	Args  []Value
}

// A Measurement describes one measurement operation. Select, when non-nil,
// holds one required outcome per measured mode; execution then conditions the
// state on those outcomes instead of sampling.
type Measurement struct {
	Kind  OpKind
	Modes []int

	// Phase is the homodyne quadrature angle. Ignored by other kinds.
	Phase float64

	Select []Value
}
