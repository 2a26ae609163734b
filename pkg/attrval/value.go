// Package attrval implements the tagged sum type shared by subject
// attributes, condition literals, and flag variation values.
package attrval

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a closed sum over {null, bool, int64, float64, string}.
// Dispatch is by exhaustive switch on Kind, never by interface method
// sets, so a new variant cannot be added silently at a call site.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func Null() Value             { return Value{kind: KindNull} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// ToFloat64 coerces the value to a float64, matching the reference
// evaluator's tryToDouble: bool becomes 1/0, int widens, string parses,
// anything unparseable fails.
func (v Value) ToFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindBool:
		if v.b {
			return 1.0, true
		}
		return 0.0, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ToCoercedString renders the value as a string for regex-style
// coercion (MATCHES/NOT_MATCHES): string passes through, bool becomes
// "true"/"false", int becomes its decimal form, everything else (null,
// float) fails the coercion.
func (v Value) ToCoercedString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindBool:
		if v.b {
			return "true", true
		}
		return "false", true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	default:
		return "", false
	}
}

// String renders a human-readable representation, used for logging and
// for the ONE_OF fallback stringification of unusual variants.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', 6, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// MarshalJSON renders the value as the plain JSON literal it
// represents, so a map[string]Value serializes the way a caller
// would expect from looking at the Go value alone.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reconstructs a Value from a plain JSON literal,
// classifying numbers the same way FromAny does.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny builds a Value from a dynamically typed Go value, as produced
// by decoding a JSON subject-attributes map. A float64 with no
// fractional part is classified as integer, any other float64 as float;
// a float32 is always float. Types not listed (including json.Number)
// become their fmt "%v" string form.
func FromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		if i := int64(t); float64(i) == t {
			return Int(i)
		}
		return Float(t)
	case float32:
		return Float(float64(t))
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
