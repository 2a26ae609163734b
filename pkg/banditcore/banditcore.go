// Package banditcore implements the contextual-bandit evaluation
// algorithm: linear scoring of actions from subject+action numeric and
// categorical coefficients, inverse-gap weighting, probability
// flooring, and deterministic shuffle-and-draw action selection.
package banditcore

import (
	"math"
	"sort"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
	"github.com/Sidd-007/eppo-go/pkg/hashing"
)

// totalShards is hard-coded per the bandit algorithm's specification;
// it is not configurable per bandit in any known corpus, so it is
// intentionally not exposed as a parameter here.
const totalShards int64 = 10000

// Action is one candidate within a bandit's action set, identified by
// a key and described by attributes scored against the bandit model.
type Action struct {
	Key        string
	Attributes map[string]attrval.Value
}

// ContextAttributes splits a raw attribute map into the numeric and
// categorical maps a linear bandit model scores against: bool becomes
// a categorical "true"/"false", null is dropped, everything else keeps
// its natural numeric/categorical home.
type ContextAttributes struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// InferContextAttributes classifies a subject or action attribute map.
func InferContextAttributes(attrs map[string]attrval.Value) ContextAttributes {
	out := ContextAttributes{Numeric: map[string]float64{}, Categorical: map[string]string{}}
	for k, v := range attrs {
		switch v.Kind() {
		case attrval.KindFloat:
			f, _ := v.AsFloat()
			out.Numeric[k] = f
		case attrval.KindInt:
			i, _ := v.AsInt()
			out.Numeric[k] = float64(i)
		case attrval.KindBool:
			b, _ := v.AsBool()
			if b {
				out.Categorical[k] = "true"
			} else {
				out.Categorical[k] = "false"
			}
		case attrval.KindString:
			s, _ := v.AsString()
			out.Categorical[k] = s
		case attrval.KindNull:
			// dropped: an absent value scores via MissingValueCoefficient.
		}
	}
	return out
}

// Event is the record emitted for analytics after a bandit selects an
// action.
type Event struct {
	FlagKey             string
	BanditKey           string
	Subject             string
	Action              string
	Timestamp           string
	ModelVersion        string
	ActionProbability   float64
	OptimalityGap       float64
	MetaData            map[string]string
	SubjectNumeric      map[string]float64
	SubjectCategorical  map[string]string
	ActionNumeric       map[string]float64
	ActionCategorical   map[string]string
}

// Result is the outcome of a single bandit evaluation.
type Result struct {
	HasAction     bool
	ActionKey     string
	Probability   float64
	OptimalityGap float64
	Event         *Event
}

// Evaluate scores every candidate action, computes inverse-gap weights
// with probability flooring, and deterministically selects one action
// via salted-shuffle-and-draw. actions must be non-empty; callers are
// responsible for the NO_ACTIONS_SUPPLIED_FOR_BANDIT short-circuit
// before invoking Evaluate.
func Evaluate(model *evalconfig.BanditModel, flagKey, subjectKey string, subjectAttributes map[string]attrval.Value, actions []Action, timestamp string, metaData map[string]string) Result {
	if len(actions) == 0 {
		return Result{}
	}

	n := float64(len(actions))
	subjectCtx := InferContextAttributes(subjectAttributes)

	scores := make(map[string]float64, len(actions))
	actionCtx := make(map[string]ContextAttributes, len(actions))
	for _, a := range actions {
		ctx := InferContextAttributes(a.Attributes)
		actionCtx[a.Key] = ctx
		scores[a.Key] = scoreAction(model.ModelData, a.Key, subjectCtx, ctx)
	}

	best := actions[0].Key
	bestScore := scores[best]
	for _, a := range actions[1:] {
		s := scores[a.Key]
		if s > bestScore || (s == bestScore && a.Key < best) {
			best = a.Key
			bestScore = s
		}
	}

	gamma := model.ModelData.Gamma
	floor := model.ModelData.ActionProbabilityFloor
	weights := make(map[string]float64, len(actions))
	sumOthers := 0.0
	for _, a := range actions {
		if a.Key == best {
			continue
		}
		w := math.Max(floor/n, 1.0/(n+gamma*(bestScore-scores[a.Key])))
		weights[a.Key] = w
		sumOthers += w
	}
	weights[best] = math.Max(0, 1.0-sumOthers)

	type shuffled struct {
		key   string
		shard int64
	}
	order := make([]shuffled, len(actions))
	for i, a := range actions {
		order[i] = shuffled{key: a.Key, shard: hashing.Shard(flagKey+"-"+subjectKey+"-"+a.Key, totalShards)}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].shard != order[j].shard {
			return order[i].shard < order[j].shard
		}
		return order[i].key < order[j].key
	})

	p := float64(hashing.Shard(flagKey+"-"+subjectKey, totalShards)) / float64(totalShards)

	selected := order[len(order)-1].key
	cumulative := 0.0
	for _, o := range order {
		cumulative += weights[o.key]
		if cumulative > p {
			selected = o.key
			break
		}
	}

	ctx := actionCtx[selected]
	event := &Event{
		FlagKey:            flagKey,
		BanditKey:          model.Key,
		Subject:            subjectKey,
		Action:             selected,
		Timestamp:          timestamp,
		ModelVersion:       model.ModelVersion,
		ActionProbability:  weights[selected],
		OptimalityGap:      bestScore - scores[selected],
		MetaData:           metaData,
		SubjectNumeric:     subjectCtx.Numeric,
		SubjectCategorical: subjectCtx.Categorical,
		ActionNumeric:      ctx.Numeric,
		ActionCategorical:  ctx.Categorical,
	}

	return Result{
		HasAction:     true,
		ActionKey:     selected,
		Probability:   weights[selected],
		OptimalityGap: bestScore - scores[selected],
		Event:         event,
	}
}

func scoreAction(model evalconfig.BanditModelData, actionKey string, subject, action ContextAttributes) float64 {
	coeffs, ok := model.Coefficients[actionKey]
	if !ok {
		return model.DefaultActionScore
	}
	return coeffs.Intercept +
		scoreNumeric(coeffs.SubjectNumeric, subject.Numeric) +
		scoreCategorical(coeffs.SubjectCategorical, subject.Categorical) +
		scoreNumeric(coeffs.ActionNumeric, action.Numeric) +
		scoreCategorical(coeffs.ActionCategorical, action.Categorical)
}

func scoreNumeric(coeffs []evalconfig.NumericCoefficient, values map[string]float64) float64 {
	sum := 0.0
	for _, c := range coeffs {
		if v, ok := values[c.AttributeKey]; ok {
			sum += c.Coefficient * v
		} else {
			sum += c.MissingValueCoefficient
		}
	}
	return sum
}

func scoreCategorical(coeffs []evalconfig.CategoricalCoefficient, values map[string]string) float64 {
	sum := 0.0
	for _, c := range coeffs {
		v, ok := values[c.AttributeKey]
		if !ok {
			sum += c.MissingValueCoefficient
			continue
		}
		if coef, ok := c.ValueCoefficients[v]; ok {
			sum += coef
		} else {
			sum += c.MissingValueCoefficient
		}
	}
	return sum
}
