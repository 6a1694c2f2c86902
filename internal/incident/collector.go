package incident

import (
	"context"
	"fmt"
	"time"
)

// Findings is what one collector contributes to an investigation.
type Findings struct {
	Evidence []Evidence
	Links    []string
}

// Collector gathers read-only evidence for an incident. Implementations must
// convert internal failures (connectivity, authorization, lookups) into
// error-severity evidence entries rather than returning an error, so one
// unreachable source never aborts the investigation stage.
type Collector interface {
	Name() string
	Collect(ctx context.Context, r *Report) Findings
}

// collectOne bounds a single collector call with its own timeout and
// recovers a panicking collector into an error evidence entry.
func collectOne(ctx context.Context, c Collector, r *Report, timeout time.Duration) (f Findings) {
	defer func() {
		if p := recover(); p != nil {
			f = Findings{Evidence: []Evidence{{
				Source:   c.Name(),
				Detail:   fmt.Sprintf("collector panicked: %v", p),
				Severity: SeverityError,
			}}}
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Collectors see a private copy of the report so concurrent collectors
	// all observe the same snapshot.
	return c.Collect(cctx, r.Clone())
}
