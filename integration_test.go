package agentlog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPIntegrationCreateIncidentPostsAndReturnsID(t *testing.T) {
	var received Incident
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"EXT-1"}`))
	}))
	defer srv.Close()

	h, err := NewHTTPIntegration(HTTPIntegrationConfig{
		Name: "test",
		URL:  srv.URL,
		ExtractID: func(body []byte) string {
			var resp struct{ ID string `json:"id"` }
			json.Unmarshal(body, &resp)
			return resp.ID
		},
	})
	if err != nil {
		t.Fatalf("NewHTTPIntegration: %v", err)
	}

	incident := Incident{IncidentID: "INC-1", Title: "db slow"}
	externalID := h.CreateIncident(incident)
	if externalID != "EXT-1" {
		t.Errorf("external id = %q, want EXT-1", externalID)
	}
	if received.IncidentID != "INC-1" {
		t.Errorf("server received incident id %q, want INC-1", received.IncidentID)
	}
}

func TestHTTPIntegrationCreateIncidentFailsClosedOnTransportError(t *testing.T) {
	h, err := NewHTTPIntegration(HTTPIntegrationConfig{Name: "broken", URL: "http://127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewHTTPIntegration: %v", err)
	}
	got := h.CreateIncident(Incident{IncidentID: "INC-1"})
	if got != "broken-ERROR" {
		t.Errorf("external id on transport failure = %q, want broken-ERROR", got)
	}
}

func TestHTTPIntegrationCreateIncidentFailsClosedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h, err := NewHTTPIntegration(HTTPIntegrationConfig{Name: "flaky", URL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTPIntegration: %v", err)
	}
	got := h.CreateIncident(Incident{IncidentID: "INC-1"})
	if got != "flaky-ERROR" {
		t.Errorf("external id on 5xx = %q, want flaky-ERROR", got)
	}
}

func TestNewHTTPIntegrationRejectsEmptyURL(t *testing.T) {
	if _, err := NewHTTPIntegration(HTTPIntegrationConfig{Name: "x"}); err == nil {
		t.Error("expected an error for an empty URL")
	}
}

func TestNewJiraIntegrationRejectsDisabledConfig(t *testing.T) {
	if _, err := NewJiraIntegration(JiraConfig{Enabled: false}); err == nil {
		t.Error("expected an error constructing a disabled jira integration")
	}
}

func TestFileIntegrationAppendsJSONLRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "incidents.jsonl")

	f, err := NewFileIntegration("file", path)
	if err != nil {
		t.Fatalf("NewFileIntegration: %v", err)
	}
	f.CreateIncident(Incident{IncidentID: "INC-1", Title: "db slow", Severity: IncidentHigh})
	f.ResolveIncident("INC-1", "fixed")
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := splitLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %q", len(lines), data)
	}

	var create fileIntegrationRecord
	if err := json.Unmarshal([]byte(lines[0]), &create); err != nil {
		t.Fatalf("decode create record: %v", err)
	}
	if create.Event != "create" || create.IncidentID != "INC-1" {
		t.Errorf("create record = %+v", create)
	}

	var resolve fileIntegrationRecord
	if err := json.Unmarshal([]byte(lines[1]), &resolve); err != nil {
		t.Fatalf("decode resolve record: %v", err)
	}
	if resolve.Event != "resolve" || resolve.Resolution != "fixed" {
		t.Errorf("resolve record = %+v", resolve)
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
