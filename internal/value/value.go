// Package value implements bakerVM's tagged value type and the
// type-directed arithmetic, comparison and casting rules that the VM core
// runs against it.
//
// Go has no native sum type, so Value is represented the way a flat-register
// CPU represents multi-shape data: one struct carrying a discriminant (Kind)
// plus one field per variant, with only the field matching Kind ever
// populated. This also happens to be exactly the shape
// github.com/hashicorp/go-msgpack/codec serializes well as a self-describing
// named record, which is why the field names are exported.
package value

import (
	"fmt"
	"math"
)

// Kind discriminates the variants a Value can hold.
type Kind uint8

const (
	Address Kind = iota
	Boolean
	Float
	Integer
	Color
	Char
)

func (k Kind) String() string {
	switch k {
	case Address:
		return "Address"
	case Boolean:
		return "Boolean"
	case Float:
		return "Float"
	case Integer:
		return "Integer"
	case Color:
		return "Color"
	case Char:
		return "Char"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// RGB is the three-channel 8-bit colour carried by a Color value.
type RGB struct {
	R, G, B uint8
}

// Pack encodes a colour as (r<<16)|(g<<8)|b, the layout spec.md's cast
// table uses for Color<->Integer/Address conversions.
func (c RGB) Pack() uint64 {
	return uint64(c.R)<<16 | uint64(c.G)<<8 | uint64(c.B)
}

// Unpack decodes the (r<<16)|(g<<8)|b layout back into an RGB.
func Unpack(bits uint64) RGB {
	return RGB{
		R: uint8(bits >> 16),
		G: uint8(bits >> 8),
		B: uint8(bits),
	}
}

// Value is bakerVM's tagged union of Address, Boolean, Float, Integer,
// Color and Char. The zero Value is Address(0).
//
// Address and Integer are both fixed at 64 bits (see SPEC_FULL.md's Open
// Questions): Go's native uint64/int64 satisfy spec.md's "bit width >= 32"
// / "bit width >= 64" requirements without needing a separate width
// parameter, since writer and reader are always this same binary.
type Value struct {
	Kind Kind
	U    uint64  // Address
	B    bool    // Boolean
	F    float64 // Float
	I    int64   // Integer
	C    RGB     // Color
	R    rune    // Char
}

func NewAddress(u uint64) Value { return Value{Kind: Address, U: u} }
func NewBoolean(b bool) Value   { return Value{Kind: Boolean, B: b} }
func NewFloat(f float64) Value  { return Value{Kind: Float, F: f} }
func NewInteger(i int64) Value  { return Value{Kind: Integer, I: i} }
func NewColor(c RGB) Value      { return Value{Kind: Color, C: c} }
func NewChar(r rune) Value      { return Value{Kind: Char, R: r} }

// Equal implements Value's total structural equality.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Address:
		return v.U == other.U
	case Boolean:
		return v.B == other.B
	case Float:
		return v.F == other.F
	case Integer:
		return v.I == other.I
	case Color:
		return v.C == other.C
	case Char:
		return v.R == other.R
	default:
		return false
	}
}

// Ordering is the result of comparing two same-variant Values.
type Ordering int

const (
	None Ordering = iota
	Less
	Greater
	Equal
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Greater:
		return "Greater"
	case Equal:
		return "Equal"
	default:
		return "None"
	}
}

// Compare orders two Values of the same variant. Mixed variants return a
// TypeMismatchError; the VM core's Cmp calls Compare directly and
// surfaces that error rather than checking the Kinds itself.
//
// Floats follow IEEE-754 partial order: a comparison involving NaN always
// yields None, never Less/Greater/Equal.
func Compare(a, b Value) (Ordering, error) {
	if a.Kind != b.Kind {
		return None, &TypeMismatchError{A: a.Kind, B: b.Kind, Op: "cmp"}
	}
	switch a.Kind {
	case Address:
		return compareUint(a.U, b.U), nil
	case Integer:
		return compareInt(a.I, b.I), nil
	case Float:
		if math.IsNaN(a.F) || math.IsNaN(b.F) {
			return None, nil
		}
		return compareFloat(a.F, b.F), nil
	case Boolean:
		return compareBool(a.B, b.B), nil
	case Char:
		return compareInt(int64(a.R), int64(b.R)), nil
	case Color:
		return compareUint(a.C.Pack(), b.C.Pack()), nil
	default:
		return None, &TypeMismatchError{A: a.Kind, B: b.Kind, Op: "cmp"}
	}
}

func compareUint(a, b uint64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareInt(a, b int64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareFloat(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareBool(a, b bool) Ordering {
	switch {
	case a == b:
		return Equal
	case !a && b:
		return Less
	default:
		return Greater
	}
}

// TypeMismatchError reports an operation attempted across two variants
// that must agree, or against a variant the operation doesn't support.
type TypeMismatchError struct {
	A, B Kind
	Op   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch in %s: %s vs %s", e.Op, e.A, e.B)
}

// UnsupportedOperationError reports an arithmetic operation that has no
// meaning for the given variant (e.g. division on an Integer).
type UnsupportedOperationError struct {
	Op   string
	Kind Kind
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s on %s", e.Op, e.Kind)
}
