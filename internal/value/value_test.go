package value

import (
	"math"
	"testing"
)

func TestEqual(t *testing.T) {
	if !NewInteger(5).Equal(NewInteger(5)) {
		t.Fatal("expected Integer(5) == Integer(5)")
	}
	if NewInteger(5).Equal(NewAddress(5)) {
		t.Fatal("expected Integer(5) != Address(5)")
	}
}

func TestCompareSameVariant(t *testing.T) {
	cases := []struct {
		a, b Value
		want Ordering
	}{
		{NewInteger(3), NewInteger(5), Less},
		{NewInteger(5), NewInteger(3), Greater},
		{NewInteger(5), NewInteger(5), Equal},
		{NewFloat(1.5), NewFloat(1.5), Equal},
		{NewAddress(1), NewAddress(2), Less},
	}
	for _, c := range cases {
		got, err := Compare(c.a, c.b)
		if err != nil {
			t.Fatalf("Compare(%v, %v): %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Fatalf("Compare(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareNaN(t *testing.T) {
	got, err := Compare(NewFloat(math.NaN()), NewFloat(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != None {
		t.Fatalf("NaN comparison = %v, want None", got)
	}
}

func TestCompareMixedVariantFails(t *testing.T) {
	if _, err := Compare(NewInteger(1), NewFloat(1)); err == nil {
		t.Fatal("expected TypeMismatchError")
	}
}

func TestArithFloatDivByZero(t *testing.T) {
	got, err := Arith(OpDiv, NewFloat(1), NewFloat(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsInf(got.F, 1) {
		t.Fatalf("1/0 = %v, want +Inf", got.F)
	}
}

func TestArithFloatRemIsTrueModulo(t *testing.T) {
	got, err := Arith(OpRem, NewFloat(-7), NewFloat(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.F != 2 {
		t.Fatalf("-7.0 rem 3.0 = %v, want 2 (true modulo, sign follows divisor)", got.F)
	}

	got, err = Arith(OpRem, NewFloat(7), NewFloat(-3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.F != -2 {
		t.Fatalf("7.0 rem -3.0 = %v, want -2 (true modulo, sign follows divisor)", got.F)
	}
}

func TestArithIntegerWraps(t *testing.T) {
	got, err := Arith(OpAdd, NewInteger(math.MaxInt64), NewInteger(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.I != math.MinInt64 {
		t.Fatalf("MaxInt64+1 = %d, want wraparound to MinInt64", got.I)
	}
}

func TestArithDivOnIntegerFails(t *testing.T) {
	if _, err := Arith(OpDiv, NewInteger(4), NewInteger(2)); err == nil {
		t.Fatal("expected UnsupportedOperationError for integer division")
	}
}

func TestArithRemIsTrueModulo(t *testing.T) {
	got, err := Arith(OpRem, NewInteger(7), NewInteger(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.I != 1 {
		t.Fatalf("7 rem 3 = %d, want 1", got.I)
	}
	got, err = Arith(OpRem, NewInteger(-7), NewInteger(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.I != 2 {
		t.Fatalf("-7 rem 3 = %d, want 2 (true modulo, not truncated remainder)", got.I)
	}
}

func TestArithMixedVariantFails(t *testing.T) {
	if _, err := Arith(OpAdd, NewInteger(1), NewFloat(1)); err == nil {
		t.Fatal("expected TypeMismatchError")
	}
}

func TestCastIdentity(t *testing.T) {
	vals := []Value{
		NewAddress(7), NewBoolean(true), NewFloat(1.25),
		NewInteger(-3), NewColor(RGB{1, 2, 3}), NewChar('x'),
	}
	for _, v := range vals {
		got := Cast(v, Type(v.Kind))
		if !got.Equal(v) {
			t.Fatalf("Cast(%v, own type) = %v, want identity", v, got)
		}
	}
}

func TestCastColorIntegerRoundTrip(t *testing.T) {
	c := NewColor(RGB{R: 10, G: 20, B: 30})
	asInt := Cast(c, TypeInteger)
	back := Cast(asInt, TypeColor)
	if !back.Equal(c) {
		t.Fatalf("Color->Integer->Color round trip = %v, want %v", back, c)
	}
}

func TestCastIntegerFloatRoundsToNearest(t *testing.T) {
	got := Cast(NewFloat(2.6), TypeInteger)
	if got.I != 3 {
		t.Fatalf("Cast(2.6, Integer) = %d, want 3", got.I)
	}
}

func TestCastUnlistedIsIdentity(t *testing.T) {
	b := NewBoolean(true)
	got := Cast(b, TypeInteger)
	if !got.Equal(b) {
		t.Fatalf("unlisted cast Cast(Boolean, Integer) = %v, want identity", got)
	}
}
