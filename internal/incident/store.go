package incident

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an incident id is unknown to the store.
var ErrNotFound = errors.New("incident not found")

// Store is the persistence boundary for incident reports. Save is an upsert
// keyed by incident id; List returns denormalized rows ordered by most
// recently updated first.
type Store interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, bool, error)
	List(ctx context.Context) ([]Summary, error)
}
