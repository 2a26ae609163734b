// Package evalconfig holds the immutable, precomputed configuration
// data model: flags, allocations, rules, conditions, splits, shards,
// variations, and bandit models, together with the one-shot
// precomputation phase that prepares raw parsed JSON for fast,
// allocation-free evaluation.
package evalconfig

import (
	"regexp"
	"time"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/hashing"
)

// Operator is the closed set of condition operators.
type Operator string

const (
	OpIsNull    Operator = "IS_NULL"
	OpMatches   Operator = "MATCHES"
	OpNotMatch  Operator = "NOT_MATCHES"
	OpOneOf     Operator = "ONE_OF"
	OpNotOneOf  Operator = "NOT_ONE_OF"
	OpGT        Operator = "GT"
	OpGTE       Operator = "GTE"
	OpLT        Operator = "LT"
	OpLTE       Operator = "LTE"
)

// VariationType is the flag's declared output type.
type VariationType string

const (
	VariationString  VariationType = "STRING"
	VariationInteger VariationType = "INTEGER"
	VariationNumeric VariationType = "NUMERIC"
	VariationBoolean VariationType = "BOOLEAN"
	VariationJSON    VariationType = "JSON"
)

// Variation is a named output value of a flag. For JSON-typed flags the
// value lives in JSONValue (canonicalized bytes plus the decoded
// generic form); for every other type it lives in Scalar.
type Variation struct {
	Key       string
	Type      VariationType
	Scalar    attrval.Value
	JSONValue []byte
	JSONAny   interface{}
}

// ShardRange is a half-open interval, re-exported here for readability
// at call sites that only import evalconfig.
type ShardRange = hashing.Range

// Shard is a (salt, ranges) pair. A subject matches a shard iff
// shard(salt+"-"+subjectKey, totalShards) falls in any of its ranges.
type Shard struct {
	Salt   string
	Ranges []ShardRange
}

// Matches reports whether subjectKey falls into this shard under
// totalShards.
func (s Shard) Matches(subjectKey string, totalShards int64) bool {
	v := hashing.Shard(hashing.ShardKey(s.Salt, subjectKey), totalShards)
	for _, r := range s.Ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// Split pairs a variation key with the shards that must ALL match for
// the split to be selected, plus a free-form string map forwarded
// verbatim onto the resulting assignment event.
type Split struct {
	VariationKey string
	Shards       []Shard
	ExtraLogging map[string]string
}

// Matches reports whether every shard of the split matches subjectKey.
func (s Split) Matches(subjectKey string, totalShards int64) bool {
	for _, sh := range s.Shards {
		if !sh.Matches(subjectKey, totalShards) {
			return false
		}
	}
	return true
}

// Condition is one operator applied to one named attribute and a
// literal value, plus every precomputed interpretation of that literal
// value that the operator evaluator might need. Precomputation is
// best-effort: an invalid regex or an unparseable numeric literal
// leaves the corresponding *Valid flag false, which forces the
// operator evaluator down a fallback path or to fail the condition —
// it never recompiles or reparses at evaluation time.
type Condition struct {
	Operator  Operator
	Attribute string
	Raw       interface{}

	BoolValue  bool
	BoolValid  bool

	NumericValue float64
	NumericValid bool

	SemVerValue SemVer
	SemVerValid bool

	FourPartValue FourPartVersion
	FourPartValid bool

	Regex      *regexp.Regexp
	RegexValid bool

	StringArray []string
}

// Rule is a conjunction of conditions; an empty condition list is
// vacuously true.
type Rule struct {
	Conditions []Condition
}

// Allocation is a gated, time-bounded, optionally rule-qualified
// container of splits within a flag.
type Allocation struct {
	Key     string
	Rules   []Rule
	StartAt *time.Time
	EndAt   *time.Time
	Splits  []Split
	DoLog   bool
}

// Active reports whether now falls in [StartAt, EndAt), treating a nil
// bound as unconstrained on that side.
func (a Allocation) Active(now time.Time) bool {
	if a.StartAt != nil && now.Before(*a.StartAt) {
		return false
	}
	if a.EndAt != nil && !now.Before(*a.EndAt) {
		return false
	}
	return true
}

// Flag is the top-level, immutable-after-load entity.
type Flag struct {
	Key          string
	Enabled      bool
	VariationType VariationType
	Variations   map[string]Variation
	Allocations  []Allocation
	TotalShards  int64
}

// NumericCoefficient scores one numeric attribute, substituting
// MissingValueCoefficient when the attribute is absent from the
// supplied attribute map.
type NumericCoefficient struct {
	AttributeKey            string
	Coefficient              float64
	MissingValueCoefficient float64
}

// CategoricalCoefficient scores one categorical attribute. The value is
// looked up in ValueCoefficients (stringified); a miss or an absent
// attribute substitutes MissingValueCoefficient.
type CategoricalCoefficient struct {
	AttributeKey            string
	MissingValueCoefficient float64
	ValueCoefficients       map[string]float64
}

// ActionCoefficients is the linear model for one bandit action.
type ActionCoefficients struct {
	Intercept           float64
	SubjectNumeric      []NumericCoefficient
	SubjectCategorical  []CategoricalCoefficient
	ActionNumeric       []NumericCoefficient
	ActionCategorical   []CategoricalCoefficient
}

// BanditModelData is the scoring configuration for one bandit.
type BanditModelData struct {
	Gamma                  float64
	DefaultActionScore     float64
	ActionProbabilityFloor float64
	Coefficients           map[string]ActionCoefficients
}

// BanditModel is one versioned bandit configuration.
type BanditModel struct {
	Key          string
	ModelName    string
	ModelVersion string
	UpdatedAt    time.Time
	ModelData    BanditModelData
}

// BanditVariation associates a flag's variation value with a bandit,
// resolved via PreparedSnapshot.BanditAssociations.
type BanditVariation struct {
	Key            string
	FlagKey        string
	VariationKey   string
	VariationValue string
}

// PreparedSnapshot is the fully precomputed, immutable configuration
// value the evaluator consumes. It is produced once by Parse and never
// mutated afterward; concurrent readers holding a *PreparedSnapshot
// reference need no synchronization.
type PreparedSnapshot struct {
	Flags              map[string]*Flag
	Bandits            map[string]*BanditModel
	BanditAssociations map[string]map[string]*BanditVariation
}

// LoadWarning records a non-fatal problem encountered while parsing or
// precomputing one entity; the entity is dropped but the rest of the
// snapshot remains usable.
type LoadWarning struct {
	Entity  string // e.g. "flag:my-flag" or "bandit:my-bandit"
	Message string
}

func (w LoadWarning) String() string {
	return w.Entity + ": " + w.Message
}
