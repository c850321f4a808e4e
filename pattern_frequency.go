package agentlog

import (
	"sync"
	"time"
)

// FrequencyKind selects a FrequencyPattern's counting rule.
type FrequencyKind int

const (
	// FrequencyBurst scores by total count of the bound event type within
	// the window.
	FrequencyBurst FrequencyKind = iota
	// FrequencyRepeated scores by per-entity count within the window.
	FrequencyRepeated
	// FrequencyAbsence is reserved and always scores 0.
	FrequencyAbsence
)

// FrequencyPattern is bound to a single event type and counts its
// occurrences (optionally per entity) within a sliding window. Grounded on
// internal/analyzer/temporal.go's lazy-pruning sliding-window idiom.
type FrequencyPattern struct {
	name      string
	desc      string
	eventType string
	kind      FrequencyKind
	threshold int
	window    time.Duration
	entityKey string

	mu               sync.Mutex
	timestamps       []time.Time
	entityTimestamps map[string][]time.Time
}

// NewFrequencyPattern constructs a frequency pattern bound to eventType.
// entityKey is only consulted for FrequencyRepeated.
func NewFrequencyPattern(name, desc, eventType string, kind FrequencyKind, threshold int, window time.Duration, entityKey string) *FrequencyPattern {
	return &FrequencyPattern{
		name:             name,
		desc:             desc,
		eventType:        eventType,
		kind:             kind,
		threshold:        threshold,
		window:           window,
		entityKey:        entityKey,
		entityTimestamps: make(map[string][]time.Time),
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return ts[i:]
}

// Match scores based on previously trained occurrences within the window;
// the triggering event itself is not counted until Train is called for it.
func (p *FrequencyPattern) Match(e *Event, history []Event) float64 {
	if e.EventType != p.eventType {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := e.Timestamp.Add(-p.window)

	switch p.kind {
	case FrequencyBurst:
		p.timestamps = pruneBefore(p.timestamps, cutoff)
		count := len(p.timestamps)
		if count >= p.threshold {
			score := 0.7 + (float64(count-p.threshold+1)/float64(p.threshold))*0.3
			if score > 1 {
				score = 1
			}
			return score
		}
		return 0
	case FrequencyRepeated:
		key := e.Entity(p.entityKey)
		if key == "" {
			return 0
		}
		ts := pruneBefore(p.entityTimestamps[key], cutoff)
		p.entityTimestamps[key] = ts
		if len(ts) >= p.threshold {
			return 1.0
		}
		return 0
	default: // FrequencyAbsence: reserved
		return 0
	}
}

// Train appends the event's timestamp to the bound counters.
func (p *FrequencyPattern) Train(e *Event) {
	if e.EventType != p.eventType {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timestamps = append(p.timestamps, e.Timestamp)
	if p.entityKey != "" {
		if key := e.Entity(p.entityKey); key != "" {
			p.entityTimestamps[key] = append(p.entityTimestamps[key], e.Timestamp)
		}
	}
}

// Name identifies the pattern.
func (p *FrequencyPattern) Name() string { return p.name }

// Description describes the pattern.
func (p *FrequencyPattern) Description() string { return p.desc }
