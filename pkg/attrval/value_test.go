package attrval

import (
	"encoding/json"
	"testing"
)

func TestToFloat64Coercion(t *testing.T) {
	cases := []struct {
		v    Value
		want float64
		ok   bool
	}{
		{Int(5), 5, true},
		{Float(2.5), 2.5, true},
		{Bool(true), 1, true},
		{Bool(false), 0, true},
		{String("3.14"), 3.14, true},
		{String("nope"), 0, false},
		{Null(), 0, false},
	}
	for _, c := range cases {
		got, ok := c.v.ToFloat64()
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("%v.ToFloat64() = (%v, %v), want (%v, %v)", c.v, got, ok, c.want, c.ok)
		}
	}
}

func TestToCoercedStringCoercion(t *testing.T) {
	if s, ok := Int(42).ToCoercedString(); !ok || s != "42" {
		t.Errorf("Int(42).ToCoercedString() = (%q, %v)", s, ok)
	}
	if s, ok := Bool(true).ToCoercedString(); !ok || s != "true" {
		t.Errorf("Bool(true).ToCoercedString() = (%q, %v)", s, ok)
	}
	if _, ok := Float(1.5).ToCoercedString(); ok {
		t.Error("Float should not coerce to a string")
	}
	if _, ok := Null().ToCoercedString(); ok {
		t.Error("Null should not coerce to a string")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	values := map[string]Value{
		"a": Int(5),
		"b": Float(2.5),
		"c": Bool(true),
		"d": String("hi"),
		"e": Null(),
	}
	data, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out map[string]Value
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if i, ok := out["a"].AsInt(); !ok || i != 5 {
		t.Errorf("expected a=5, got %v %v", i, ok)
	}
	if f, ok := out["b"].AsFloat(); !ok || f != 2.5 {
		t.Errorf("expected b=2.5, got %v %v", f, ok)
	}
	if b, ok := out["c"].AsBool(); !ok || !b {
		t.Errorf("expected c=true, got %v %v", b, ok)
	}
	if s, ok := out["d"].AsString(); !ok || s != "hi" {
		t.Errorf("expected d=hi, got %v %v", s, ok)
	}
	if !out["e"].IsNull() {
		t.Error("expected e to be null")
	}
}

func TestFromAnyClassifiesIntegralFloatAsInt(t *testing.T) {
	v := FromAny(float64(7))
	if v.Kind() != KindInt {
		t.Errorf("expected integral float64 to classify as KindInt, got %v", v.Kind())
	}
	v2 := FromAny(float64(7.5))
	if v2.Kind() != KindFloat {
		t.Errorf("expected fractional float64 to classify as KindFloat, got %v", v2.Kind())
	}
}
