package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/incident/pgstore"
	"github.com/linnemanlabs/remedy/internal/postgres"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("REMEDY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("REMEDY_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func testReport(id string, status incident.Status, updatedAt time.Time) *incident.Report {
	return &incident.Report{
		IncidentID:    id,
		CorrelationID: "corr-" + id,
		Status:        status,
		IncidentType:  "crashloop",
		Severity:      "critical",
		Summary:       "Pod checkout-api is crash looping",
		CreatedAt:     updatedAt.Add(-time.Minute),
		UpdatedAt:     updatedAt,
		Evidence: []incident.Evidence{
			{Source: "k8s", Detail: "Pod checkout-api restarts=7", Severity: incident.SeverityWarning},
		},
		Actions: []incident.Action{
			{Action: "Roll back the last deployment", Risk: incident.RiskMedium, Confidence: 0.7},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id := ulid.Make().String()
	now := time.Now().Truncate(time.Microsecond).UTC()
	r := testReport(id, incident.StatusRecommended, now)

	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}
	if got.IncidentID != id {
		t.Errorf("IncidentID = %q, want %q", got.IncidentID, id)
	}
	if got.Status != incident.StatusRecommended {
		t.Errorf("Status = %q, want %q", got.Status, incident.StatusRecommended)
	}
	if len(got.Evidence) != 1 || got.Evidence[0].Detail != r.Evidence[0].Detail {
		t.Errorf("Evidence = %+v, want %+v", got.Evidence, r.Evidence)
	}
	if len(got.Actions) != 1 || got.Actions[0].Confidence != 0.7 {
		t.Errorf("Actions = %+v, want %+v", got.Actions, r.Actions)
	}
}

func TestGet_Missing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for missing id")
	}
}

func TestSave_UpsertsByID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id := ulid.Make().String()
	now := time.Now().Truncate(time.Microsecond).UTC()

	if err := s.Save(ctx, testReport(id, incident.StatusNew, now)); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(ctx, testReport(id, incident.StatusValidated, now.Add(time.Second))); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Status != incident.StatusValidated {
		t.Errorf("Status after upsert = %q, want %q", got.Status, incident.StatusValidated)
	}
}

func TestList_RecencyOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Microsecond).UTC()
	var ids []string
	for i := range 3 {
		id := ulid.Make().String()
		ids = append(ids, id)
		r := testReport(id, incident.StatusValidated, base.Add(time.Duration(i)*time.Second))
		start := base
		done := base.Add(250 * time.Millisecond)
		r.StageTimings = []incident.StageTiming{
			{Stage: incident.StageTriage, StartedAt: start, CompletedAt: &done},
		}
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// The table may hold rows from other test runs; check relative order of
	// the three we just inserted (newest updated_at first).
	pos := map[string]int{}
	for i, sum := range summaries {
		pos[sum.IncidentID] = i
	}
	for _, id := range ids {
		if _, ok := pos[id]; !ok {
			t.Fatalf("incident %s missing from List", id)
		}
	}
	if !(pos[ids[2]] < pos[ids[1]] && pos[ids[1]] < pos[ids[0]]) {
		t.Errorf("recency order wrong: %v", func() []string {
			out := make([]string, 0, 3)
			for _, id := range ids {
				out = append(out, fmt.Sprintf("%s@%d", id, pos[id]))
			}
			return out
		}())
	}

	// Stage latency is derived from the stored report.
	sum := summaries[pos[ids[0]]]
	if sum.TimeToTriageMS == nil || *sum.TimeToTriageMS != 250 {
		t.Errorf("TimeToTriageMS = %v, want 250", sum.TimeToTriageMS)
	}
}
