package flagcore

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
	"github.com/Sidd-007/eppo-go/pkg/evaldetails"
	"github.com/Sidd-007/eppo-go/pkg/hashing"
)

func hundredPercentSplit(variationKey string) evalconfig.Split {
	return evalconfig.Split{
		VariationKey: variationKey,
		Shards: []evalconfig.Shard{
			{Salt: "s", Ranges: []evalconfig.ShardRange{{Start: 0, End: 10000}}},
		},
	}
}

// S1 — boolean flag with a single 100% allocation, flag disabled.
func TestScenarioS1DisabledFlag(t *testing.T) {
	flag := &evalconfig.Flag{
		Key:           "F",
		Enabled:       false,
		VariationType: evalconfig.VariationBoolean,
		TotalShards:   10000,
		Variations: map[string]evalconfig.Variation{
			"T": {Key: "T", Type: evalconfig.VariationBoolean, Scalar: attrval.Bool(true)},
		},
		Allocations: []evalconfig.Allocation{
			{Key: "A", DoLog: true, Splits: []evalconfig.Split{hundredPercentSplit("T")}},
		},
	}

	result := Evaluate(flag, "alice", map[string]attrval.Value{}, time.Now(), zerolog.Nop())

	if result.HasValue {
		t.Error("expected no value for a disabled flag")
	}
	if result.Details.FlagEvaluationCode != evaldetails.FlagUnrecognizedOrDisabled {
		t.Errorf("code = %v, want FLAG_UNRECOGNIZED_OR_DISABLED", result.Details.FlagEvaluationCode)
	}
	if len(result.Details.Allocations) != 0 {
		t.Errorf("expected no allocation trace, got %v", result.Details.Allocations)
	}
}

// S2 — subject-key augmentation via the implicit "id" attribute.
func TestScenarioS2SubjectKeyAugmentation(t *testing.T) {
	rule := evalconfig.Rule{Conditions: []evalconfig.Condition{
		{Operator: evalconfig.OpOneOf, Attribute: "id", StringArray: []string{"alice"}},
	}}
	flag := &evalconfig.Flag{
		Key:           "F",
		Enabled:       true,
		VariationType: evalconfig.VariationString,
		TotalShards:   10000,
		Variations: map[string]evalconfig.Variation{
			"V": {Key: "V", Type: evalconfig.VariationString, Scalar: attrval.String("x")},
		},
		Allocations: []evalconfig.Allocation{
			{Key: "A", DoLog: true, Rules: []evalconfig.Rule{rule}, Splits: []evalconfig.Split{hundredPercentSplit("V")}},
		},
	}

	aliceResult := Evaluate(flag, "alice", map[string]attrval.Value{}, time.Now(), zerolog.Nop())
	if !aliceResult.HasValue || aliceResult.Variation.Scalar.String() != "x" {
		t.Errorf("alice should get variation 'x', got %+v", aliceResult)
	}

	bobResult := Evaluate(flag, "bob", map[string]attrval.Value{}, time.Now(), zerolog.Nop())
	if bobResult.HasValue {
		t.Error("bob should get no value")
	}
	if bobResult.Details.FlagEvaluationCode != evaldetails.FlagDefaultAllocationNull {
		t.Errorf("bob's code = %v, want DEFAULT_ALLOCATION_NULL", bobResult.Details.FlagEvaluationCode)
	}
	if len(bobResult.Details.Allocations) != 1 || bobResult.Details.Allocations[0].AllocationEvaluationCode != evaldetails.AllocationFailingRule {
		t.Errorf("bob's allocation trace = %+v, want single FAILING_RULE", bobResult.Details.Allocations)
	}
}

func TestFirstMatchWinsRemainingUnevaluated(t *testing.T) {
	flag := &evalconfig.Flag{
		Key:           "F",
		Enabled:       true,
		VariationType: evalconfig.VariationString,
		TotalShards:   10000,
		Variations: map[string]evalconfig.Variation{
			"V1": {Key: "V1", Type: evalconfig.VariationString, Scalar: attrval.String("first")},
			"V2": {Key: "V2", Type: evalconfig.VariationString, Scalar: attrval.String("second")},
		},
		Allocations: []evalconfig.Allocation{
			{Key: "A1", DoLog: true, Splits: []evalconfig.Split{hundredPercentSplit("V1")}},
			{Key: "A2", DoLog: true, Splits: []evalconfig.Split{hundredPercentSplit("V2")}},
		},
	}

	result := Evaluate(flag, "alice", map[string]attrval.Value{}, time.Now(), zerolog.Nop())
	if result.Variation.Scalar.String() != "first" {
		t.Errorf("expected the first matching allocation to win, got %v", result.Variation.Scalar)
	}
	if len(result.Details.Allocations) != 2 {
		t.Fatalf("expected two allocation traces, got %d", len(result.Details.Allocations))
	}
	if result.Details.Allocations[0].AllocationEvaluationCode != evaldetails.AllocationMatch {
		t.Error("first allocation should be MATCH")
	}
	if result.Details.Allocations[1].AllocationEvaluationCode != evaldetails.AllocationUnevaluated {
		t.Error("second allocation should be UNEVALUATED")
	}
}

func TestTimeGating(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	end := now.Add(2 * time.Hour)
	flag := &evalconfig.Flag{
		Key:           "F",
		Enabled:       true,
		VariationType: evalconfig.VariationString,
		TotalShards:   10000,
		Variations: map[string]evalconfig.Variation{
			"V": {Key: "V", Type: evalconfig.VariationString, Scalar: attrval.String("x")},
		},
		Allocations: []evalconfig.Allocation{
			{Key: "A", DoLog: true, StartAt: &start, EndAt: &end, Splits: []evalconfig.Split{hundredPercentSplit("V")}},
		},
	}

	before := Evaluate(flag, "alice", nil, now, zerolog.Nop())
	if before.Details.Allocations[0].AllocationEvaluationCode != evaldetails.AllocationBeforeStartTime {
		t.Errorf("expected BEFORE_START_TIME, got %v", before.Details.Allocations[0].AllocationEvaluationCode)
	}

	during := Evaluate(flag, "alice", nil, start.Add(time.Minute), zerolog.Nop())
	if !during.HasValue {
		t.Error("expected a match during the active window")
	}

	after := Evaluate(flag, "alice", nil, end, zerolog.Nop())
	if after.Details.Allocations[0].AllocationEvaluationCode != evaldetails.AllocationAfterEndTime {
		t.Errorf("expected AFTER_END_TIME at the exclusive end bound, got %v", after.Details.Allocations[0].AllocationEvaluationCode)
	}
}

// S3 — shard determinism against an externally computed value.
func TestScenarioS3ShardDeterminism(t *testing.T) {
	shard := hashing.Shard(hashing.ShardKey("s", "alice"), 10000)
	if shard != hashing.Shard("s-alice", 10000) {
		t.Fatal("ShardKey must match manual concatenation")
	}
	r := evalconfig.ShardRange{Start: 0, End: 5000}
	inRange := r.Contains(shard)
	s := evalconfig.Shard{Salt: "s", Ranges: []evalconfig.ShardRange{r}}
	if s.Matches("alice", 10000) != inRange {
		t.Error("Shard.Matches must agree with manual range containment check")
	}
}
