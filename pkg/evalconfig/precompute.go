package evalconfig

import (
	"fmt"
	"regexp"
	"strconv"
)

// PrecomputeCondition fills in every cached interpretation of a
// condition built programmatically (outside of Parse), e.g. by tests
// or by an alternate configuration loader.
func PrecomputeCondition(c *Condition) {
	precomputeCondition(c)
}

// precomputeCondition fills in every cached interpretation of
// condition.Raw that the operator evaluator might need. Precomputation
// is best-effort and never fails the whole load: an invalid regex or
// an unparseable numeric value simply leaves the corresponding *Valid
// flag false, which the operator evaluator treats as a fallback or a
// failed condition, never as a reparse opportunity.
func precomputeCondition(c *Condition) {
	switch c.Operator {
	case OpIsNull:
		if b, ok := c.Raw.(bool); ok {
			c.BoolValue = b
			c.BoolValid = true
		}
		return

	case OpMatches, OpNotMatch:
		if s, ok := c.Raw.(string); ok {
			if re, err := regexp.Compile(s); err == nil {
				c.Regex = re
				c.RegexValid = true
			}
		}
		return

	case OpOneOf, OpNotOneOf:
		c.StringArray = toStringArray(c.Raw)
		return

	case OpGT, OpGTE, OpLT, OpLTE:
		if s, ok := c.Raw.(string); ok {
			if sv, ok := ParseSemVer(s); ok {
				c.SemVerValue = sv
				c.SemVerValid = true
			}
			if fpv, ok := ParseFourPartVersion(s); ok {
				c.FourPartValue = fpv
				c.FourPartValid = true
			}
		}
		if f, ok := coerceRawToFloat(c.Raw); ok {
			c.NumericValue = f
			c.NumericValid = true
		}
		return
	}
}

// toStringArray converts a decoded JSON array into a string slice,
// stringifying any non-string element verbatim (mirroring
// convertToStringArray in the reference evaluator).
func toStringArray(raw interface{}) []string {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, formatJSONNumber(v))
		case bool:
			if v {
				out = append(out, "true")
			} else {
				out = append(out, "false")
			}
		case nil:
			out = append(out, "null")
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

func formatJSONNumber(f float64) string {
	if i := int64(f); float64(i) == f {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// coerceRawToFloat parses a raw decoded-JSON literal as a float64,
// matching tryToDouble's treatment of numbers/strings/bools.
func coerceRawToFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if v {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}
