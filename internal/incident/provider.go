package incident

import "context"

// Recommendation is a provider's structured output. Hypotheses may be nil,
// in which case the report keeps the ones derived during analysis.
type Recommendation struct {
	Actions    []Action
	Hypotheses []Hypothesis
}

// Provider is any recommendation backend. A (nil, nil) return means "no
// result": the backend failed every attempt, returned nothing parsable, or
// is not configured. The orchestrator treats all of those identically and
// falls back to a fixed action.
type Provider interface {
	Name() string
	Recommend(ctx context.Context, r *Report) (*Recommendation, error)
}
