// Package ruleeval implements the per-operator condition evaluator:
// regex match, set membership, numeric/semver/four-part-version
// ordering, and the null test. It consumes the precomputed values
// cached on evalconfig.Condition and never recompiles a regex or
// reparses a version at evaluation time.
package ruleeval

import (
	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
)

// RuleMatches reports whether every condition of rule matches attrs.
// An empty condition list is vacuously true.
func RuleMatches(rule evalconfig.Rule, attrs map[string]attrval.Value, logger zerolog.Logger) bool {
	for _, cond := range rule.Conditions {
		if !ConditionMatches(cond, attrs, logger) {
			return false
		}
	}
	return true
}

// ConditionMatches evaluates a single condition against the subject
// attribute map.
func ConditionMatches(cond evalconfig.Condition, attrs map[string]attrval.Value, logger zerolog.Logger) bool {
	if cond.Operator == evalconfig.OpIsNull {
		v, present := attrs[cond.Attribute]
		isNull := !present || v.IsNull()
		if !cond.BoolValid {
			return false
		}
		return isNull == cond.BoolValue
	}

	subject, present := attrs[cond.Attribute]
	if !present {
		return false
	}

	switch cond.Operator {
	case evalconfig.OpMatches:
		if !cond.RegexValid {
			return false
		}
		s, ok := subject.ToCoercedString()
		if !ok {
			return false
		}
		return cond.Regex.MatchString(s)

	case evalconfig.OpNotMatch:
		if !cond.RegexValid {
			return false
		}
		s, ok := subject.ToCoercedString()
		if !ok {
			return false
		}
		return !cond.Regex.MatchString(s)

	case evalconfig.OpOneOf:
		return isOneOf(subject, cond.StringArray)

	case evalconfig.OpNotOneOf:
		return !isOneOf(subject, cond.StringArray)

	case evalconfig.OpGT, evalconfig.OpGTE, evalconfig.OpLT, evalconfig.OpLTE:
		return evaluateOrdering(cond, subject)

	default:
		logger.Warn().Str("operator", string(cond.Operator)).Msg("unknown condition operator")
		return false
	}
}

func evaluateOrdering(cond evalconfig.Condition, subject attrval.Value) bool {
	if s, ok := subject.AsString(); ok && cond.SemVerValid {
		if sv, ok := evalconfig.ParseSemVer(s); ok {
			return compareResult(sv.Compare(cond.SemVerValue), cond.Operator)
		}
		// Falls through to the four-part-version / numeric tiers below.
	}

	if s, ok := subject.AsString(); ok && cond.FourPartValid {
		if fpv, ok := evalconfig.ParseFourPartVersion(s); ok {
			return compareResult(fpv.Compare(cond.FourPartValue), cond.Operator)
		}
	}

	if subjectNum, ok := subject.ToFloat64(); ok && cond.NumericValid {
		return compareFloat(subjectNum, cond.NumericValue, cond.Operator)
	}

	return false
}

func compareResult(c int, op evalconfig.Operator) bool {
	switch op {
	case evalconfig.OpGT:
		return c > 0
	case evalconfig.OpGTE:
		return c >= 0
	case evalconfig.OpLT:
		return c < 0
	case evalconfig.OpLTE:
		return c <= 0
	default:
		return false
	}
}

func compareFloat(a, b float64, op evalconfig.Operator) bool {
	switch op {
	case evalconfig.OpGT:
		return a > b
	case evalconfig.OpGTE:
		return a >= b
	case evalconfig.OpLT:
		return a < b
	case evalconfig.OpLTE:
		return a <= b
	default:
		return false
	}
}

// isOneOf reports whether subject equals any entry of conditionValues,
// applying the same type-coerced equality rules as the reference
// evaluator's isOne: string exact match, numeric parse-then-compare,
// boolean literal forms, null sentinel forms, else a stringified
// fallback.
func isOneOf(subject attrval.Value, conditionValues []string) bool {
	for _, s := range conditionValues {
		if isOne(subject, s) {
			return true
		}
	}
	return false
}

func isOne(subject attrval.Value, s string) bool {
	switch subject.Kind() {
	case attrval.KindString:
		v, _ := subject.AsString()
		return v == s

	case attrval.KindFloat:
		v, _ := subject.AsFloat()
		parsed, ok := attrval.String(s).ToFloat64()
		return ok && v == parsed

	case attrval.KindInt:
		v, _ := subject.AsInt()
		parsed, ok := attrval.String(s).ToFloat64()
		return ok && float64(v) == parsed

	case attrval.KindBool:
		v, _ := subject.AsBool()
		switch s {
		case "true", "True", "TRUE", "1":
			return v == true
		case "false", "False", "FALSE", "0":
			return v == false
		default:
			return false
		}

	case attrval.KindNull:
		return s == "null" || s == "nil" || s == ""

	default:
		return subject.String() == s
	}
}
