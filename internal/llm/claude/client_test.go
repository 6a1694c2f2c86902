package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/llm"
)

func testReport() *incident.Report {
	return &incident.Report{
		IncidentID:   "i-1",
		IncidentType: "crashloop",
		Severity:     "critical",
		Summary:      "pod crash looping",
	}
}

// newTestClient points the SDK at a local server.
func newTestClient(baseURL string) *Client {
	c := New("test-key", "claude-test", llm.Options{MaxRetries: 0}, nil)
	c.client = anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return c
}

func messagesResponse(text string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-test",
		"stop_reason": "end_turn",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
	}
}

func TestRecommend_ParsesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "claude-test" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse(
			`{"recommended_actions": [{"action": "check pod events", "risk": "low", "confidence": 0.5}]}`,
		))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	rec, err := c.Recommend(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec == nil {
		t.Fatal("expected recommendation")
	}
	if rec.Actions[0].Action != "check pod events" {
		t.Errorf("action = %q", rec.Actions[0].Action)
	}
}

func TestRecommend_EmptyKeyNoResult(t *testing.T) {
	t.Parallel()

	c := New("", "claude-test", llm.Options{}, nil)

	rec, err := c.Recommend(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil", rec)
	}
}

func TestRecommend_UnparsableTextNoResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse("I am unable to answer in JSON."))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	rec, err := c.Recommend(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil for unparsable content", rec)
	}
}

func TestRecommend_ServerErrorNoResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	rec, err := c.Recommend(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil", rec)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := New("", "", llm.Options{}, nil).Name(); got != "claude" {
		t.Errorf("Name() = %q, want %q", got, "claude")
	}
}
