package evalconfig

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
)

// Parse decodes a raw configuration document into a PreparedSnapshot.
// Structural problems in the top-level "flags" or "bandits" objects
// cause the per-entity error to be collected into the returned
// warnings slice and that entity to be dropped; parsing continues for
// every other entity, matching parseConfigResponse's per-entity error
// isolation in the reference implementation. Parse never returns an
// error for malformed individual flags/bandits — only for a document
// that cannot be decoded as JSON at all, or whose top-level shape is
// not an object.
func Parse(data []byte) (*PreparedSnapshot, []LoadWarning, error) {
	var doc struct {
		Flags            map[string]json.RawMessage `json:"flags"`
		Bandits          map[string]json.RawMessage `json:"bandits"`
		BanditReferences map[string]json.RawMessage `json:"banditReferences"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("evalconfig: decode configuration document: %w", err)
	}

	snapshot := &PreparedSnapshot{
		Flags:              make(map[string]*Flag, len(doc.Flags)),
		Bandits:            make(map[string]*BanditModel, len(doc.Bandits)),
		BanditAssociations: make(map[string]map[string]*BanditVariation),
	}
	var warnings []LoadWarning

	for key, raw := range doc.Flags {
		flag, err := parseFlag(key, raw)
		if err != nil {
			warnings = append(warnings, LoadWarning{Entity: "flag:" + key, Message: err.Error()})
			continue
		}
		snapshot.Flags[key] = flag
	}

	for key, raw := range doc.Bandits {
		bandit, err := parseBanditModel(key, raw)
		if err != nil {
			warnings = append(warnings, LoadWarning{Entity: "bandit:" + key, Message: err.Error()})
			continue
		}
		snapshot.Bandits[key] = bandit
	}

	for banditKey, raw := range doc.BanditReferences {
		var ref struct {
			FlagVariations []BanditVariation `json:"flagVariations"`
		}
		if err := json.Unmarshal(raw, &ref); err != nil {
			warnings = append(warnings, LoadWarning{Entity: "banditReference:" + banditKey, Message: err.Error()})
			continue
		}
		for i := range ref.FlagVariations {
			bv := ref.FlagVariations[i]
			bv.Key = banditKey
			if snapshot.BanditAssociations[bv.FlagKey] == nil {
				snapshot.BanditAssociations[bv.FlagKey] = make(map[string]*BanditVariation)
			}
			cp := bv
			snapshot.BanditAssociations[bv.FlagKey][bv.VariationValue] = &cp
		}
	}

	return snapshot, warnings, nil
}

type rawVariation struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type rawCondition struct {
	Attribute string          `json:"attribute"`
	Operator  string          `json:"operator"`
	Value     json.RawMessage `json:"value"`
}

type rawRule struct {
	Conditions []rawCondition `json:"conditions"`
}

type rawShardRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type rawShard struct {
	Salt   string          `json:"salt"`
	Ranges []rawShardRange `json:"ranges"`
}

type rawSplit struct {
	VariationKey string            `json:"variationKey"`
	Shards       []rawShard        `json:"shards"`
	ExtraLogging map[string]string `json:"extraLogging"`
}

type rawAllocation struct {
	Key     string     `json:"key"`
	Rules   []rawRule  `json:"rules"`
	StartAt *time.Time `json:"startAt"`
	EndAt   *time.Time `json:"endAt"`
	Splits  []rawSplit `json:"splits"`
	DoLog   *bool      `json:"doLog"`
}

type rawFlag struct {
	Key           string                  `json:"key"`
	Enabled       bool                    `json:"enabled"`
	VariationType string                  `json:"variationType"`
	TotalShards   int64                   `json:"totalShards"`
	Variations    map[string]rawVariation `json:"variations"`
	Allocations   []rawAllocation         `json:"allocations"`
}

func parseFlag(key string, raw json.RawMessage) (*Flag, error) {
	var rf rawFlag
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("decode flag: %w", err)
	}
	if rf.Key == "" {
		rf.Key = key
	}
	vt := VariationType(rf.VariationType)
	switch vt {
	case VariationString, VariationInteger, VariationNumeric, VariationBoolean, VariationJSON:
	default:
		return nil, fmt.Errorf("unknown variationType %q", rf.VariationType)
	}

	totalShards := rf.TotalShards
	if totalShards == 0 {
		totalShards = 10000
	}
	if totalShards <= 0 {
		return nil, fmt.Errorf("totalShards must be positive, got %d", totalShards)
	}

	variations := make(map[string]Variation, len(rf.Variations))
	for vKey, rv := range rf.Variations {
		v, err := parseVariationValue(vKey, vt, rv.Value)
		if err != nil {
			// Invalid variation coercion is dropped silently, not an
			// entity-level failure: other variations remain usable.
			continue
		}
		variations[vKey] = v
	}

	allocations := make([]Allocation, 0, len(rf.Allocations))
	for _, ra := range rf.Allocations {
		alloc, err := parseAllocation(ra)
		if err != nil {
			return nil, fmt.Errorf("allocation %q: %w", ra.Key, err)
		}
		allocations = append(allocations, alloc)
	}

	return &Flag{
		Key:           rf.Key,
		Enabled:       rf.Enabled,
		VariationType: vt,
		Variations:    variations,
		Allocations:   allocations,
		TotalShards:   totalShards,
	}, nil
}

// parseVariationValue coerces a raw JSON literal into the flag's
// declared VariationType. INTEGER additionally accepts a float with no
// fractional part or a parseable numeric string; BOOLEAN additionally
// accepts "true"/"false" strings. A coercion that cannot be satisfied
// is an error, causing the variation to be dropped.
func parseVariationValue(key string, vt VariationType, raw json.RawMessage) (Variation, error) {
	if vt == VariationJSON {
		var any interface{}
		if err := json.Unmarshal(raw, &any); err != nil {
			return Variation{}, err
		}
		canon, err := json.Marshal(any)
		if err != nil {
			return Variation{}, err
		}
		return Variation{Key: key, Type: vt, JSONValue: canon, JSONAny: any}, nil
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Variation{}, err
	}

	switch vt {
	case VariationString:
		s, ok := generic.(string)
		if !ok {
			return Variation{}, fmt.Errorf("variation %q is not a string", key)
		}
		return Variation{Key: key, Type: vt, Scalar: attrval.String(s)}, nil

	case VariationBoolean:
		switch b := generic.(type) {
		case bool:
			return Variation{Key: key, Type: vt, Scalar: attrval.Bool(b)}, nil
		case string:
			if b == "true" {
				return Variation{Key: key, Type: vt, Scalar: attrval.Bool(true)}, nil
			}
			if b == "false" {
				return Variation{Key: key, Type: vt, Scalar: attrval.Bool(false)}, nil
			}
		}
		return Variation{}, fmt.Errorf("variation %q is not a boolean", key)

	case VariationInteger:
		switch n := generic.(type) {
		case float64:
			if i := int64(n); float64(i) == n {
				return Variation{Key: key, Type: vt, Scalar: attrval.Int(i)}, nil
			}
		case string:
			if v, ok := attrval.String(n).ToFloat64(); ok {
				if i := int64(v); float64(i) == v {
					return Variation{Key: key, Type: vt, Scalar: attrval.Int(i)}, nil
				}
			}
		}
		return Variation{}, fmt.Errorf("variation %q is not an integer", key)

	case VariationNumeric:
		switch n := generic.(type) {
		case float64:
			return Variation{Key: key, Type: vt, Scalar: attrval.Float(n)}, nil
		case string:
			if v, ok := attrval.String(n).ToFloat64(); ok {
				return Variation{Key: key, Type: vt, Scalar: attrval.Float(v)}, nil
			}
		}
		return Variation{}, fmt.Errorf("variation %q is not numeric", key)
	}

	return Variation{}, fmt.Errorf("unsupported variation type %q", vt)
}

func parseAllocation(ra rawAllocation) (Allocation, error) {
	rules := make([]Rule, 0, len(ra.Rules))
	for _, rr := range ra.Rules {
		rule, err := parseRule(rr)
		if err != nil {
			return Allocation{}, err
		}
		rules = append(rules, rule)
	}

	if len(ra.Splits) == 0 {
		return Allocation{}, fmt.Errorf("allocation must have at least one split")
	}
	splits := make([]Split, 0, len(ra.Splits))
	for _, rs := range ra.Splits {
		split, err := parseSplit(rs)
		if err != nil {
			return Allocation{}, err
		}
		splits = append(splits, split)
	}

	doLog := true
	if ra.DoLog != nil {
		doLog = *ra.DoLog
	}

	return Allocation{
		Key:     ra.Key,
		Rules:   rules,
		StartAt: ra.StartAt,
		EndAt:   ra.EndAt,
		Splits:  splits,
		DoLog:   doLog,
	}, nil
}

func parseRule(rr rawRule) (Rule, error) {
	conditions := make([]Condition, 0, len(rr.Conditions))
	for _, rc := range rr.Conditions {
		op := Operator(rc.Operator)
		switch op {
		case OpIsNull, OpMatches, OpNotMatch, OpOneOf, OpNotOneOf, OpGT, OpGTE, OpLT, OpLTE:
		default:
			return Rule{}, fmt.Errorf("unknown operator %q", rc.Operator)
		}
		var raw interface{}
		if len(rc.Value) > 0 {
			if err := json.Unmarshal(rc.Value, &raw); err != nil {
				return Rule{}, fmt.Errorf("condition on %q: %w", rc.Attribute, err)
			}
		}
		cond := Condition{Operator: op, Attribute: rc.Attribute, Raw: raw}
		precomputeCondition(&cond)
		conditions = append(conditions, cond)
	}
	return Rule{Conditions: conditions}, nil
}

func parseSplit(rs rawSplit) (Split, error) {
	if len(rs.Shards) == 0 {
		return Split{}, fmt.Errorf("split %q must have at least one shard", rs.VariationKey)
	}
	shards := make([]Shard, 0, len(rs.Shards))
	for _, sh := range rs.Shards {
		if len(sh.Ranges) == 0 {
			return Split{}, fmt.Errorf("shard must have at least one range")
		}
		ranges := make([]ShardRange, 0, len(sh.Ranges))
		for _, r := range sh.Ranges {
			if r.End < r.Start {
				return Split{}, fmt.Errorf("shard range end < start")
			}
			ranges = append(ranges, ShardRange{Start: r.Start, End: r.End})
		}
		shards = append(shards, Shard{Salt: sh.Salt, Ranges: ranges})
	}
	return Split{VariationKey: rs.VariationKey, Shards: shards, ExtraLogging: rs.ExtraLogging}, nil
}

type rawNumericCoefficient struct {
	AttributeKey            string  `json:"attributeKey"`
	Coefficient              float64 `json:"coefficient"`
	MissingValueCoefficient float64 `json:"missingValueCoefficient"`
}

type rawCategoricalCoefficient struct {
	AttributeKey            string             `json:"attributeKey"`
	MissingValueCoefficient float64            `json:"missingValueCoefficient"`
	ValueCoefficients       map[string]float64 `json:"valueCoefficients"`
}

type rawActionCoefficients struct {
	Intercept                     float64                     `json:"intercept"`
	SubjectNumericCoefficients     []rawNumericCoefficient     `json:"subjectNumericCoefficients"`
	SubjectCategoricalCoefficients []rawCategoricalCoefficient `json:"subjectCategoricalCoefficients"`
	ActionNumericCoefficients     []rawNumericCoefficient     `json:"actionNumericCoefficients"`
	ActionCategoricalCoefficients []rawCategoricalCoefficient `json:"actionCategoricalCoefficients"`
}

type rawBanditModelData struct {
	Gamma                  float64                          `json:"gamma"`
	DefaultActionScore     float64                          `json:"defaultActionScore"`
	ActionProbabilityFloor float64                          `json:"actionProbabilityFloor"`
	Coefficients           map[string]rawActionCoefficients `json:"coefficients"`
}

type rawBanditModel struct {
	BanditKey    string             `json:"banditKey"`
	ModelName    string             `json:"modelName"`
	ModelVersion string             `json:"modelVersion"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	ModelData    rawBanditModelData `json:"modelData"`
}

func parseBanditModel(key string, raw json.RawMessage) (*BanditModel, error) {
	var rb rawBanditModel
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("decode bandit: %w", err)
	}
	if rb.BanditKey == "" {
		rb.BanditKey = key
	}
	if rb.ModelData.ActionProbabilityFloor < 0 || rb.ModelData.ActionProbabilityFloor > 1 {
		return nil, fmt.Errorf("actionProbabilityFloor must be in [0,1], got %v", rb.ModelData.ActionProbabilityFloor)
	}
	if rb.ModelData.Gamma < 0 {
		return nil, fmt.Errorf("gamma must be >= 0, got %v", rb.ModelData.Gamma)
	}

	coefficients := make(map[string]ActionCoefficients, len(rb.ModelData.Coefficients))
	for actionKey, rc := range rb.ModelData.Coefficients {
		coefficients[actionKey] = ActionCoefficients{
			Intercept:          rc.Intercept,
			SubjectNumeric:     convertNumeric(rc.SubjectNumericCoefficients),
			SubjectCategorical: convertCategorical(rc.SubjectCategoricalCoefficients),
			ActionNumeric:      convertNumeric(rc.ActionNumericCoefficients),
			ActionCategorical:  convertCategorical(rc.ActionCategoricalCoefficients),
		}
	}

	return &BanditModel{
		Key:          rb.BanditKey,
		ModelName:    rb.ModelName,
		ModelVersion: rb.ModelVersion,
		UpdatedAt:    rb.UpdatedAt,
		ModelData: BanditModelData{
			Gamma:                  rb.ModelData.Gamma,
			DefaultActionScore:     rb.ModelData.DefaultActionScore,
			ActionProbabilityFloor: rb.ModelData.ActionProbabilityFloor,
			Coefficients:           coefficients,
		},
	}, nil
}

func convertNumeric(in []rawNumericCoefficient) []NumericCoefficient {
	out := make([]NumericCoefficient, len(in))
	for i, c := range in {
		out[i] = NumericCoefficient{
			AttributeKey:            c.AttributeKey,
			Coefficient:             c.Coefficient,
			MissingValueCoefficient: c.MissingValueCoefficient,
		}
	}
	return out
}

func convertCategorical(in []rawCategoricalCoefficient) []CategoricalCoefficient {
	out := make([]CategoricalCoefficient, len(in))
	for i, c := range in {
		out[i] = CategoricalCoefficient{
			AttributeKey:            c.AttributeKey,
			MissingValueCoefficient: c.MissingValueCoefficient,
			ValueCoefficients:       c.ValueCoefficients,
		}
	}
	return out
}
