// Package flagcore implements the flag-evaluation algorithm: rule
// matching, time-window gating, and deterministic traffic splitting,
// producing either a typed variation value plus an assignment-log
// record, or a structured "no match" outcome, alongside a full
// evaluation-details trace.
package flagcore

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
	"github.com/Sidd-007/eppo-go/pkg/evaldetails"
	"github.com/Sidd-007/eppo-go/pkg/ruleeval"
)

// SDKMetaData is stamped onto every emitted assignment/bandit event.
var SDKMetaData = map[string]string{
	"sdkLanguage": "go",
	"sdkVersion":  "0.1.0",
}

// AssignmentEvent is the record emitted for analytics when a flag
// evaluation matches and the matched allocation has DoLog set.
type AssignmentEvent struct {
	Experiment        string
	FeatureFlag       string
	Allocation        string
	Variation         string
	Subject           string
	SubjectAttributes map[string]attrval.Value
	Timestamp         string
	MetaData          map[string]string
	ExtraLogging      map[string]string
}

// Result is the outcome of a single flag evaluation.
type Result struct {
	Variation evalconfig.Variation
	HasValue  bool
	Event     *AssignmentEvent
	Details   evaldetails.Details
}

// NowFunc abstracts the wall clock so tests can inject a fixed instant
// rather than calling time.Now from inside the evaluator body.
type NowFunc func() time.Time

// Evaluate runs the flag-evaluation algorithm for one (flag, subject)
// pair against a single instant. It performs no I/O and never mutates
// flag or subjectAttributes.
func Evaluate(flag *evalconfig.Flag, subjectKey string, subjectAttributes map[string]attrval.Value, now time.Time, logger zerolog.Logger) Result {
	details := evaldetails.Details{
		SubjectKey:        subjectKey,
		SubjectAttributes: subjectAttributes,
		Timestamp:         evaldetails.FormatISO8601(now),
	}

	if flag == nil {
		details.FlagEvaluationCode = evaldetails.FlagUnrecognizedOrDisabled
		return Result{Details: details}
	}

	if !flag.Enabled {
		details.FlagEvaluationCode = evaldetails.FlagUnrecognizedOrDisabled
		return Result{Details: details}
	}

	augmented := augmentAttributes(subjectAttributes, subjectKey)

	var matched *evalconfig.Allocation
	var matchedSplit *evalconfig.Split

	for i, alloc := range flag.Allocations {
		orderPosition := i + 1
		if matched != nil {
			details.Allocations = append(details.Allocations, evaldetails.AllocationTrace{
				Key: alloc.Key, OrderPosition: orderPosition, AllocationEvaluationCode: evaldetails.AllocationUnevaluated,
			})
			continue
		}

		code, split := evaluateAllocation(alloc, augmented, subjectKey, flag.TotalShards, now, logger)
		details.Allocations = append(details.Allocations, evaldetails.AllocationTrace{
			Key: alloc.Key, OrderPosition: orderPosition, AllocationEvaluationCode: code,
		})
		if code == evaldetails.AllocationMatch {
			a := flag.Allocations[i]
			matched = &a
			matchedSplit = split
		}
	}

	if matched == nil {
		details.FlagEvaluationCode = evaldetails.FlagDefaultAllocationNull
		return Result{Details: details}
	}

	variation, ok := flag.Variations[matchedSplit.VariationKey]
	if !ok {
		details.FlagEvaluationCode = evaldetails.FlagAssignmentError
		return Result{Details: details}
	}

	details.FlagEvaluationCode = evaldetails.FlagMatch
	details.VariationKey = variation.Key
	details.VariationValue = variation.Scalar
	details.HasVariation = true

	result := Result{Variation: variation, HasValue: true, Details: details}

	if matched.DoLog {
		result.Event = &AssignmentEvent{
			Experiment:        flag.Key + "-" + matched.Key,
			FeatureFlag:       flag.Key,
			Allocation:        matched.Key,
			Variation:         variation.Key,
			Subject:           subjectKey,
			SubjectAttributes: subjectAttributes,
			Timestamp:         details.Timestamp,
			MetaData:          SDKMetaData,
			ExtraLogging:      matchedSplit.ExtraLogging,
		}
	}

	return result
}

// augmentAttributes returns a view of attrs with an implicit "id"
// attribute set to subjectKey, added only if the subject did not
// already supply one. The input map is never mutated.
func augmentAttributes(attrs map[string]attrval.Value, subjectKey string) map[string]attrval.Value {
	if _, present := attrs["id"]; present {
		return attrs
	}
	out := make(map[string]attrval.Value, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out["id"] = attrval.String(subjectKey)
	return out
}

func evaluateAllocation(alloc evalconfig.Allocation, attrs map[string]attrval.Value, subjectKey string, totalShards int64, now time.Time, logger zerolog.Logger) (evaldetails.AllocationEvaluationCode, *evalconfig.Split) {
	if alloc.StartAt != nil && now.Before(*alloc.StartAt) {
		return evaldetails.AllocationBeforeStartTime, nil
	}
	if alloc.EndAt != nil && !now.Before(*alloc.EndAt) {
		return evaldetails.AllocationAfterEndTime, nil
	}

	if len(alloc.Rules) > 0 {
		anyMatch := false
		for _, rule := range alloc.Rules {
			if ruleeval.RuleMatches(rule, attrs, logger) {
				anyMatch = true
				break
			}
		}
		if !anyMatch {
			return evaldetails.AllocationFailingRule, nil
		}
	}

	for i := range alloc.Splits {
		if alloc.Splits[i].Matches(subjectKey, totalShards) {
			return evaldetails.AllocationMatch, &alloc.Splits[i]
		}
	}
	return evaldetails.AllocationTrafficExposureMiss, nil
}
