package agentlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Integration is the generic external-tracker adapter contract. Methods
// must not panic across this boundary: transport failures are caught and
// turned into a sentinel id, never propagated to the caller. Grounded on
// the teacher's small single-purpose writer interfaces
// (internal/pipeline/*_writer.go).
type Integration interface {
	CreateIncident(incident Incident) string
	UpdateIncident(incident Incident)
	ResolveIncident(externalID string, resolution string)
	Name() string
}

// HTTPIntegration posts incident payloads to a configured HTTP endpoint.
// Generalized from internal/output/alerthttp/writer.go's JSON-over-HTTP
// POST with a configurable header map and timeout; reused with different
// URLs/headers/body builders to back the Jira, PagerDuty, and Slack
// adapters named in spec.md's Config block.
type HTTPIntegration struct {
	name       string
	url        string
	headers    map[string]string
	client     *http.Client
	buildBody  func(Incident) ([]byte, error)
	extractID  func([]byte) string
}

// HTTPIntegrationConfig configures an HTTPIntegration.
type HTTPIntegrationConfig struct {
	Name      string
	URL       string
	Headers   map[string]string
	Timeout   time.Duration
	BuildBody func(Incident) ([]byte, error)
	ExtractID func(respBody []byte) string
}

// NewHTTPIntegration constructs an HTTP-transport integration.
func NewHTTPIntegration(cfg HTTPIntegrationConfig) (*HTTPIntegration, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("agentlog: %s integration URL is empty", cfg.Name)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	buildBody := cfg.BuildBody
	if buildBody == nil {
		buildBody = func(i Incident) ([]byte, error) { return json.Marshal(i) }
	}
	return &HTTPIntegration{
		name:      cfg.Name,
		url:       cfg.URL,
		headers:   cfg.Headers,
		client:    &http.Client{Timeout: timeout},
		buildBody: buildBody,
		extractID: cfg.ExtractID,
	}, nil
}

func (h *HTTPIntegration) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody := make([]byte, 0, 512)
	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			respBody = append(respBody, buf[:n]...)
		}
		if err != nil {
			break
		}
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http request failed with status %s", resp.Status)
	}
	return respBody, nil
}

// CreateIncident posts the incident and returns an external id, or a
// sentinel "<NAME>-ERROR" on transport failure per spec.md §6.
func (h *HTTPIntegration) CreateIncident(incident Incident) string {
	body, err := h.buildBody(incident)
	if err != nil {
		return h.name + "-ERROR"
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.client.Timeout)
	defer cancel()
	respBody, err := h.post(ctx, body)
	if err != nil {
		return h.name + "-ERROR"
	}
	if h.extractID != nil {
		if id := h.extractID(respBody); id != "" {
			return id
		}
	}
	return incident.IncidentID
}

// UpdateIncident is a minimal best-effort notification; failures are
// swallowed, matching spec.md §9's note that update_incident is
// under-specified and a no-op-on-failure implementation is acceptable.
func (h *HTTPIntegration) UpdateIncident(incident Incident) {
	body, err := h.buildBody(incident)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.client.Timeout)
	defer cancel()
	h.post(ctx, body)
}

// ResolveIncident notifies the endpoint of resolution; unknown ids and
// transport errors are tolerated silently.
func (h *HTTPIntegration) ResolveIncident(externalID string, resolution string) {
	if externalID == "" {
		return
	}
	payload, err := json.Marshal(map[string]string{"external_id": externalID, "resolution": resolution})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.client.Timeout)
	defer cancel()
	h.post(ctx, payload)
}

// Name identifies the integration.
func (h *HTTPIntegration) Name() string { return h.name }

// NewJiraIntegration builds an HTTPIntegration shaped for Jira's issue
// creation endpoint.
func NewJiraIntegration(cfg JiraConfig) (*HTTPIntegration, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("agentlog: jira integration disabled")
	}
	return NewHTTPIntegration(HTTPIntegrationConfig{
		Name: "jira",
		URL:  cfg.URL,
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APIToken,
		},
		BuildBody: func(i Incident) ([]byte, error) {
			return json.Marshal(map[string]interface{}{
				"project":     cfg.ProjectKey,
				"summary":     i.Title,
				"description": i.Description,
				"severity":    i.Severity.String(),
			})
		},
	})
}

// NewPagerDutyIntegration builds an HTTPIntegration shaped for
// PagerDuty's Events API.
func NewPagerDutyIntegration(cfg PagerDutyConfig) (*HTTPIntegration, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("agentlog: pagerduty integration disabled")
	}
	return NewHTTPIntegration(HTTPIntegrationConfig{
		Name: "pagerduty",
		URL:  "https://events.pagerduty.com/v2/enqueue",
		Headers: map[string]string{
			"Authorization": "Token token=" + cfg.APIToken,
		},
		BuildBody: func(i Incident) ([]byte, error) {
			return json.Marshal(map[string]interface{}{
				"routing_key":  cfg.IntegrationKey,
				"event_action": "trigger",
				"payload": map[string]interface{}{
					"summary":  i.Title,
					"severity": severityToPagerDuty(i.Severity),
					"source":   "agentlog",
				},
			})
		},
	})
}

// NewSlackIntegration builds an HTTPIntegration shaped for a Slack
// incoming webhook.
func NewSlackIntegration(cfg SlackConfig) (*HTTPIntegration, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("agentlog: slack integration disabled")
	}
	return NewHTTPIntegration(HTTPIntegrationConfig{
		Name: "slack",
		URL:  cfg.WebhookURL,
		BuildBody: func(i Incident) ([]byte, error) {
			return json.Marshal(map[string]interface{}{
				"channel": cfg.Channel,
				"text":    fmt.Sprintf("[%s] %s: %s", i.Severity, i.Title, i.Description),
			})
		},
	})
}

func severityToPagerDuty(s IncidentSeverity) string {
	switch s {
	case IncidentCritical:
		return "critical"
	case IncidentHigh:
		return "error"
	case IncidentMedium:
		return "warning"
	default:
		return "info"
	}
}

// FileIntegration appends dispatched incidents to a JSON-lines file.
// Generalized from internal/output/alertjson/writer.go's JSONL encoder
// idiom; used by the demo and by tests that want a durable record of
// dispatched incidents without a live endpoint.
type FileIntegration struct {
	name    string
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewFileIntegration opens (creating if needed) a JSONL file for incident
// records.
func NewFileIntegration(name, path string) (*FileIntegration, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("agentlog: create integration output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("agentlog: open integration output file: %w", err)
	}
	return &FileIntegration{name: name, file: f, encoder: json.NewEncoder(f)}, nil
}

type fileIntegrationRecord struct {
	Event      string   `json:"event"`
	IncidentID string   `json:"incident_id"`
	Title      string   `json:"title,omitempty"`
	Severity   string   `json:"severity,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
}

// CreateIncident appends a creation record and returns the incident's own
// id as the external id.
func (f *FileIntegration) CreateIncident(incident Incident) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encoder.Encode(fileIntegrationRecord{
		Event: "create", IncidentID: incident.IncidentID,
		Title: incident.Title, Severity: incident.Severity.String(),
	})
	return incident.IncidentID
}

// UpdateIncident appends an update record.
func (f *FileIntegration) UpdateIncident(incident Incident) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encoder.Encode(fileIntegrationRecord{Event: "update", IncidentID: incident.IncidentID})
}

// ResolveIncident appends a resolution record.
func (f *FileIntegration) ResolveIncident(externalID string, resolution string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encoder.Encode(fileIntegrationRecord{
		Event: "resolve", IncidentID: externalID, Resolution: resolution,
	})
}

// Name identifies the integration.
func (f *FileIntegration) Name() string { return f.name }

// Close releases the underlying file handle.
func (f *FileIntegration) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
