package agentlog

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventCloneDoesNotShareMutableState(t *testing.T) {
	e := Event{
		EventID:   1,
		Entities:  map[string]string{"user": "alice"},
		Metrics:   map[string]float64{"latency_ms": 42},
		Tags:      []string{"a"},
	}
	clone := e.Clone()
	clone.Entities["user"] = "bob"
	clone.Metrics["latency_ms"] = 100
	clone.Tags[0] = "b"

	if e.Entities["user"] != "alice" {
		t.Error("mutating the clone's entities mutated the original")
	}
	if e.Metrics["latency_ms"] != 42 {
		t.Error("mutating the clone's metrics mutated the original")
	}
	if e.Tags[0] != "a" {
		t.Error("mutating the clone's tags mutated the original")
	}
}

func TestEventAccessorsOnNilSafeFields(t *testing.T) {
	var e Event
	if e.Entity("missing") != "" {
		t.Error("Entity on an event with no entities should return empty string")
	}
	if _, ok := e.Metric("missing"); ok {
		t.Error("Metric on an event with no metrics should report not-found")
	}
	if e.ContextValue("missing") != "" {
		t.Error("ContextValue on an event with no context should return empty string")
	}
}

func TestEventMarshalJSONFieldOrderAndOmission(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := Event{
		EventID:      7,
		EventType:    "api.call",
		Timestamp:    ts,
		Severity:     Warning,
		AnomalyScore: 0.42,
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["event_id"].(float64) != 7 {
		t.Errorf("event_id = %v, want 7", decoded["event_id"])
	}
	if decoded["severity"] != "WARNING" {
		t.Errorf("severity = %v, want WARNING", decoded["severity"])
	}
	if _, present := decoded["message"]; present {
		t.Error("empty message should be omitted")
	}
	if _, present := decoded["entities"]; present {
		t.Error("empty entities map should be omitted")
	}
	if decoded["timestamp"].(float64) != float64(ts.UnixMilli()) {
		t.Errorf("timestamp = %v, want %d", decoded["timestamp"], ts.UnixMilli())
	}
}
