package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/incident"
)

func nsReport(namespace string) *incident.Report {
	return &incident.Report{RawAlert: &alert.Payload{
		Labels: map[string]string{"namespace": namespace},
	}}
}

func TestLoki_Collect(t *testing.T) {
	t.Parallel()

	var gotTenant, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/query_range" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotTenant = r.Header.Get("X-Scope-OrgID")
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{
			"status": "success",
			"data": {"result": [{
				"stream": {"pod": "checkout-api-6f7d9"},
				"values": [
					["1700000000000000000", "panic: connection refused"],
					["1700000001000000000", "error: retry budget exhausted"]
				]
			}]}
		}`))
	}))
	defer srv.Close()

	l := NewLoki(srv.URL, "tenant-a")
	f := l.Collect(context.Background(), nsReport("payments"))

	if gotTenant != "tenant-a" {
		t.Errorf("X-Scope-OrgID = %q, want %q", gotTenant, "tenant-a")
	}
	if !strings.Contains(gotQuery, `namespace="payments"`) {
		t.Errorf("query = %q, want namespace selector", gotQuery)
	}
	if len(f.Evidence) != 2 {
		t.Fatalf("evidence count = %d, want 2", len(f.Evidence))
	}
	if !strings.Contains(f.Evidence[0].Detail, "panic: connection refused") {
		t.Errorf("Evidence[0].Detail = %q", f.Evidence[0].Detail)
	}
	if !strings.Contains(f.Evidence[0].Detail, "checkout-api-6f7d9") {
		t.Errorf("Evidence[0].Detail = %q, want pod name", f.Evidence[0].Detail)
	}
	for _, ev := range f.Evidence {
		if ev.Source != "loki" || ev.Severity != incident.SeverityWarning {
			t.Errorf("evidence = %+v, want loki/warning", ev)
		}
	}
	if len(f.Links) != 1 || !strings.Contains(f.Links[0], "logcli query") {
		t.Errorf("Links = %v", f.Links)
	}
}

func TestLoki_NoMatches(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "success", "data": {"result": []}}`))
	}))
	defer srv.Close()

	f := NewLoki(srv.URL, "").Collect(context.Background(), nsReport("payments"))

	if len(f.Evidence) != 1 {
		t.Fatalf("evidence count = %d, want 1", len(f.Evidence))
	}
	if f.Evidence[0].Severity != incident.SeverityInfo {
		t.Errorf("severity = %q, want %q", f.Evidence[0].Severity, incident.SeverityInfo)
	}
	if !strings.Contains(f.Evidence[0].Detail, "No error-level log lines") {
		t.Errorf("detail = %q", f.Evidence[0].Detail)
	}
}

func TestLoki_CapsLineCount(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		values := make([]string, 0, 25)
		for range 25 {
			values = append(values, `["1700000000000000000", "error line"]`)
		}
		w.Write([]byte(`{
			"status": "success",
			"data": {"result": [{"stream": {"pod": "p"}, "values": [` + strings.Join(values, ",") + `]}]}
		}`))
	}))
	defer srv.Close()

	f := NewLoki(srv.URL, "").Collect(context.Background(), nsReport("payments"))

	if len(f.Evidence) != lokiLineLimit {
		t.Errorf("evidence count = %d, want %d", len(f.Evidence), lokiLineLimit)
	}
}

func TestLoki_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many outstanding requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewLoki(srv.URL, "").Collect(context.Background(), nsReport("payments"))

	if len(f.Evidence) != 1 {
		t.Fatalf("evidence count = %d, want 1", len(f.Evidence))
	}
	if f.Evidence[0].Severity != incident.SeverityError {
		t.Errorf("severity = %q, want %q", f.Evidence[0].Severity, incident.SeverityError)
	}
	if !strings.Contains(f.Evidence[0].Detail, "429") {
		t.Errorf("detail = %q, want status code", f.Evidence[0].Detail)
	}
}

func TestLoki_Unreachable(t *testing.T) {
	t.Parallel()

	f := NewLoki("http://127.0.0.1:1", "").Collect(context.Background(), nsReport("payments"))

	if len(f.Evidence) != 1 || f.Evidence[0].Severity != incident.SeverityError {
		t.Fatalf("findings = %+v, want single error evidence", f)
	}
}
