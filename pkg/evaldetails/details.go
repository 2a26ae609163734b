// Package evaldetails assembles the stable, enum-coded evaluation
// trace produced alongside every flag and bandit evaluation.
package evaldetails

import "github.com/Sidd-007/eppo-go/pkg/attrval"

// FlagEvaluationCode classifies the overall outcome of a flag
// evaluation. These strings are part of the cross-SDK contract and
// must never be renamed.
type FlagEvaluationCode string

const (
	FlagMatch                      FlagEvaluationCode = "MATCH"
	FlagConfigurationMissing       FlagEvaluationCode = "CONFIGURATION_MISSING"
	FlagUnrecognizedOrDisabled     FlagEvaluationCode = "FLAG_UNRECOGNIZED_OR_DISABLED"
	FlagDefaultAllocationNull      FlagEvaluationCode = "DEFAULT_ALLOCATION_NULL"
	FlagTypeMismatch               FlagEvaluationCode = "TYPE_MISMATCH"
	FlagAssignmentError            FlagEvaluationCode = "ASSIGNMENT_ERROR"
)

// AllocationEvaluationCode classifies the fate of one allocation
// during a flag evaluation's trace walk.
type AllocationEvaluationCode string

const (
	AllocationUnevaluated        AllocationEvaluationCode = "UNEVALUATED"
	AllocationMatch              AllocationEvaluationCode = "MATCH"
	AllocationBeforeStartTime    AllocationEvaluationCode = "BEFORE_START_TIME"
	AllocationAfterEndTime       AllocationEvaluationCode = "AFTER_END_TIME"
	AllocationFailingRule        AllocationEvaluationCode = "FAILING_RULE"
	AllocationTrafficExposureMiss AllocationEvaluationCode = "TRAFFIC_EXPOSURE_MISS"
)

// BanditEvaluationCode classifies the outcome of the bandit-aware
// accessor's attempt to resolve an action.
type BanditEvaluationCode string

const (
	BanditMatch                    BanditEvaluationCode = "MATCH"
	BanditNonBanditVariation       BanditEvaluationCode = "NON_BANDIT_VARIATION"
	BanditNoActionsSuppliedForBandit BanditEvaluationCode = "NO_ACTIONS_SUPPLIED_FOR_BANDIT"
	BanditError                    BanditEvaluationCode = "ERROR"
)

// AllocationTrace is one entry of the flag-evaluation trace.
type AllocationTrace struct {
	Key                      string
	OrderPosition            int
	AllocationEvaluationCode AllocationEvaluationCode
}

// Details is the full evaluation-details record produced alongside
// every flag evaluation, and optionally extended with bandit fields
// when a bandit-aware accessor was used.
type Details struct {
	FlagEvaluationCode FlagEvaluationCode
	Allocations        []AllocationTrace

	VariationKey   string
	VariationValue attrval.Value
	HasVariation   bool

	SubjectKey        string
	SubjectAttributes map[string]attrval.Value
	Timestamp         string

	BanditEvaluationCode BanditEvaluationCode
	HasBanditCode        bool
	BanditKey            string
	BanditAction         string
}
