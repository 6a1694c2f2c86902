package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
)

func TestSaveGet_RoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	want := &incident.Report{
		IncidentID:    "i-1",
		CorrelationID: "c-1",
		Status:        incident.StatusNew,
		IncidentType:  "crashloop",
		Severity:      "critical",
		Summary:       "pod crash looping",
		Evidence:      []incident.Evidence{{Source: "triage", Detail: "x", Severity: incident.SeverityInfo}},
	}

	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Get(context.Background(), "i-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("report not found")
	}
	if got.IncidentID != want.IncidentID || got.Summary != want.Summary {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Evidence) != 1 {
		t.Errorf("evidence = %d, want 1", len(got.Evidence))
	}
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing id")
	}
}

func TestSave_UpsertsByID(t *testing.T) {
	t.Parallel()

	s := New()
	r := &incident.Report{IncidentID: "i-1", Status: incident.StatusNew}
	if err := s.Save(context.Background(), r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r.Status = incident.StatusValidated
	if err := s.Save(context.Background(), r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, _ := s.Get(context.Background(), "i-1")
	if !ok {
		t.Fatal("report not found")
	}
	if got.Status != incident.StatusValidated {
		t.Errorf("status = %q, want %q", got.Status, incident.StatusValidated)
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d rows, want 1 (upsert must not duplicate)", len(list))
	}
}

func TestSave_StoresCopy(t *testing.T) {
	t.Parallel()

	s := New()
	r := &incident.Report{
		IncidentID: "i-1",
		Evidence:   []incident.Evidence{{Detail: "original"}},
	}
	if err := s.Save(context.Background(), r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's report after save must not affect the store.
	r.Evidence[0].Detail = "mutated"
	r.Evidence = append(r.Evidence, incident.Evidence{Detail: "extra"})

	got, _, _ := s.Get(context.Background(), "i-1")
	if got.Evidence[0].Detail != "original" {
		t.Error("store shares memory with the caller's report")
	}
	if len(got.Evidence) != 1 {
		t.Errorf("evidence = %d, want 1", len(got.Evidence))
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Save(context.Background(), &incident.Report{
		IncidentID: "i-1",
		Evidence:   []incident.Evidence{{Detail: "original"}},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, _, _ := s.Get(context.Background(), "i-1")
	first.Evidence[0].Detail = "mutated"

	second, _, _ := s.Get(context.Background(), "i-1")
	if second.Evidence[0].Detail != "original" {
		t.Error("Get returns shared memory between callers")
	}
}

func TestList_OrderedByRecency(t *testing.T) {
	t.Parallel()

	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"oldest", "middle", "newest"} {
		if err := s.Save(context.Background(), &incident.Report{
			IncidentID: id,
			UpdatedAt:  base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list = %d rows, want 3", len(list))
	}
	want := []string{"newest", "middle", "oldest"}
	for i, w := range want {
		if list[i].IncidentID != w {
			t.Errorf("list[%d] = %q, want %q", i, list[i].IncidentID, w)
		}
	}
}

func TestList_Empty(t *testing.T) {
	t.Parallel()

	s := New()
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list = %d rows, want 0", len(list))
	}
}
