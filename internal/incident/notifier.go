package incident

import "context"

// Notifier delivers lifecycle events to an external channel. Delivery is
// best-effort: the orchestrator logs a returned error and moves on.
type Notifier interface {
	IncidentCreated(ctx context.Context, r *Report) error
	RecommendationReady(ctx context.Context, r *Report) error
	ValidationComplete(ctx context.Context, r *Report) error
}
