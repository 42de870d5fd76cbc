package value

import "math"

// Type mirrors Value's Kind, plus TypeSize — spec.md §3 notes Type
// "mirrors the variants (plus optional Size)"; Size has no corresponding
// Value variant (there is nothing to hold one) and exists only so a
// future Cast target can ask "how many bytes would this occupy", which
// nothing in this spec currently needs; Cast to TypeSize is identity like
// every other unlisted conversion.
type Type uint8

const (
	TypeAddress Type = Type(Address)
	TypeBoolean Type = Type(Boolean)
	TypeFloat   Type = Type(Float)
	TypeInteger Type = Type(Integer)
	TypeColor   Type = Type(Color)
	TypeChar    Type = Type(Char)
	TypeSize    Type = 6
)

func (t Type) String() string {
	if t == TypeSize {
		return "Size"
	}
	return Kind(t).String()
}

// Cast converts v to the given Type following spec.md §3's table. Casts
// never fail: an unlisted conversion (including any cast to its own
// type) is the identity, returning v unchanged with its original Kind.
func Cast(v Value, t Type) Value {
	if t == TypeSize || Kind(t) == v.Kind {
		return v
	}
	switch {
	case v.Kind == Integer && t == TypeFloat:
		return NewFloat(float64(v.I))
	case v.Kind == Float && t == TypeInteger:
		return NewInteger(int64(math.Round(v.F)))
	case v.Kind == Integer && t == TypeAddress:
		return NewAddress(uint64(v.I))
	case v.Kind == Address && t == TypeInteger:
		return NewInteger(int64(v.U))
	case v.Kind == Integer && t == TypeChar:
		return NewChar(rune(byte(v.I)))
	case v.Kind == Char && t == TypeInteger:
		return NewInteger(int64(v.R))
	case v.Kind == Color && (t == TypeInteger):
		return NewInteger(int64(v.C.Pack()))
	case v.Kind == Color && t == TypeAddress:
		return NewAddress(v.C.Pack())
	case v.Kind == Integer && t == TypeColor:
		return NewColor(Unpack(uint64(v.I)))
	case v.Kind == Address && t == TypeColor:
		return NewColor(Unpack(v.U))
	default:
		// Unlisted conversion: identity, per spec.md §4.1.
		return v
	}
}

