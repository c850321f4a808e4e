package agentlog

import (
	"encoding/json"
	"time"
)

// StackFrame is one frame of a captured stack trace.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     uint32 `json:"line"`
	Module   string `json:"module,omitempty"`
}

// Event is the core structured record produced by application code and
// consumed by the pipeline. An Event is fully owned by its producer until
// it is handed to the Queue; from that point the worker that pops it has
// exclusive ownership.
type Event struct {
	EventID   uint64
	EventType string
	Timestamp time.Time
	Severity  Severity
	Message   string

	Entities map[string]string
	Metrics  map[string]float64
	Context  map[string]string
	Tags     []string

	StackTrace []StackFrame

	ServiceName     string
	ServiceInstance string
	TraceID         string
	SpanID          string

	AnomalyScore     float64
	PredictedLabels  []string
	IncidentID       string
}

// Clone returns a deep-enough copy suitable for handing into history
// buffers and integration payloads without sharing mutable maps/slices
// with the original.
func (e Event) Clone() Event {
	c := e
	c.Entities = cloneStringMap(e.Entities)
	c.Metrics = cloneMetricMap(e.Metrics)
	c.Context = cloneStringMap(e.Context)
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.StackTrace != nil {
		c.StackTrace = append([]StackFrame(nil), e.StackTrace...)
	}
	if e.PredictedLabels != nil {
		c.PredictedLabels = append([]string(nil), e.PredictedLabels...)
	}
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneMetricMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Entity returns an entity value, or "" if absent.
func (e *Event) Entity(name string) string {
	if e == nil || e.Entities == nil {
		return ""
	}
	return e.Entities[name]
}

// Metric returns a metric value and whether it was present.
func (e *Event) Metric(name string) (float64, bool) {
	if e == nil || e.Metrics == nil {
		return 0, false
	}
	v, ok := e.Metrics[name]
	return v, ok
}

// ContextValue returns a context value, or "" if absent.
func (e *Event) ContextValue(name string) string {
	if e == nil || e.Context == nil {
		return ""
	}
	return e.Context[name]
}

// eventJSON pins the exact key order required by the wire format: event_id,
// event_type, timestamp, severity, then optional message/service/trace_id,
// then entities/metrics/context (each omitted if empty), then anomaly_score,
// then optional incident_id.
type eventJSON struct {
	EventID   uint64             `json:"event_id"`
	EventType string             `json:"event_type"`
	Timestamp int64              `json:"timestamp"`
	Severity  string             `json:"severity"`
	Message   string             `json:"message,omitempty"`
	Service   string             `json:"service,omitempty"`
	TraceID   string             `json:"trace_id,omitempty"`

	Entities map[string]string  `json:"entities,omitempty"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
	Context  map[string]string  `json:"context,omitempty"`

	AnomalyScore float64 `json:"anomaly_score"`
	IncidentID   string  `json:"incident_id,omitempty"`
}

// MarshalJSON serializes the event with the field order spec.md requires.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		EventID:      e.EventID,
		EventType:    e.EventType,
		Timestamp:    e.Timestamp.UnixMilli(),
		Severity:     e.Severity.String(),
		Message:      e.Message,
		Service:      e.ServiceName,
		TraceID:      e.TraceID,
		Entities:     nonEmptyStringMap(e.Entities),
		Metrics:      nonEmptyMetricMap(e.Metrics),
		Context:      nonEmptyStringMap(e.Context),
		AnomalyScore: e.AnomalyScore,
		IncidentID:   e.IncidentID,
	}
	return json.Marshal(out)
}

func nonEmptyStringMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func nonEmptyMetricMap(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	return m
}
