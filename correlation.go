package agentlog

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// CorrelationType identifies which strategy produced a Correlation.
type CorrelationType int

const (
	CorrelationTraceID CorrelationType = iota
	CorrelationEntity
	CorrelationService
	CorrelationTemporal
)

func (t CorrelationType) String() string {
	switch t {
	case CorrelationTraceID:
		return "trace_id"
	case CorrelationEntity:
		return "entity"
	case CorrelationService:
		return "service"
	case CorrelationTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// Correlation records a set of events grouped by a shared key.
type Correlation struct {
	EventIDs        []uint64
	CorrelationType CorrelationType
	Confidence      float64
	Reason          string
	FirstEventTime  time.Time
	LastEventTime   time.Time
	Metadata        map[string]string
}

const (
	confidenceTraceID  = 1.0
	confidenceEntity   = 0.8
	confidenceService  = 0.6
	confidenceTemporal = 0.4
)

// eventCorrelator holds the indexed store of recent events plus the
// correlations produced against them. Grounded on
// original_source/include/agentlog/correlation_engine.h for the four
// strategies and internal/analyzer/tactical.go for the Go idiom of
// building adjacency indices over a time-ordered history.
type eventCorrelator struct {
	mu sync.Mutex

	events []Event
	byID   map[uint64]*Event

	traceIndex   map[string][]uint64
	entityIndex  map[string][]uint64
	serviceIndex map[string][]uint64

	correlations []Correlation
}

func newEventCorrelator() *eventCorrelator {
	return &eventCorrelator{
		byID:         make(map[uint64]*Event),
		traceIndex:   make(map[string][]uint64),
		entityIndex:  make(map[string][]uint64),
		serviceIndex: make(map[string][]uint64),
	}
}

func entityIndexKey(key, value string) string { return key + "=" + value }

// correlate evaluates all four strategies against the store as it stood
// before this event, then adds the event to the store and indices.
func (c *eventCorrelator) correlate(e *Event) []Correlation {
	c.mu.Lock()
	defer c.mu.Unlock()

	var produced []Correlation

	if e.TraceID != "" {
		if ids, ok := c.traceIndex[e.TraceID]; ok && len(ids) > 0 {
			all := append(append([]uint64{}, ids...), e.EventID)
			produced = append(produced, c.build(all, CorrelationTraceID, confidenceTraceID,
				fmt.Sprintf("shared trace_id %q", e.TraceID)))
		}
	}

	if len(e.Entities) > 0 {
		seen := make(map[uint64]bool)
		var ids []uint64
		for k, v := range e.Entities {
			for _, id := range c.entityIndex[entityIndexKey(k, v)] {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		if len(ids) > 0 {
			ids = append(ids, e.EventID)
			produced = append(produced, c.build(ids, CorrelationEntity, confidenceEntity,
				"shared entity value"))
		}
	}

	if e.ServiceName != "" {
		cutoff := e.Timestamp.Add(-1 * time.Minute)
		var ids []uint64
		for _, id := range c.serviceIndex[e.ServiceName] {
			ev := c.byID[id]
			if ev != nil && !ev.Timestamp.Before(cutoff) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			ids = append(ids, e.EventID)
			produced = append(produced, c.build(ids, CorrelationService, confidenceService,
				fmt.Sprintf("shared service %q within 1 minute", e.ServiceName)))
		}
	}

	{
		lo := e.Timestamp.Add(-5 * time.Second)
		hi := e.Timestamp.Add(5 * time.Second)
		var ids []uint64
		for _, ev := range c.events {
			if !ev.Timestamp.Before(lo) && !ev.Timestamp.After(hi) {
				ids = append(ids, ev.EventID)
			}
		}
		if len(ids) >= 2 {
			ids = append(ids, e.EventID)
			produced = append(produced, c.build(ids, CorrelationTemporal, confidenceTemporal,
				"temporal proximity within 5 seconds"))
		}
	}

	c.correlations = append(c.correlations, produced...)
	c.store(e)

	return produced
}

func (c *eventCorrelator) build(ids []uint64, typ CorrelationType, confidence float64, reason string) Correlation {
	first, last := c.timeRange(ids)
	return Correlation{
		EventIDs:        ids,
		CorrelationType: typ,
		Confidence:      confidence,
		Reason:          reason,
		FirstEventTime:  first,
		LastEventTime:   last,
	}
}

func (c *eventCorrelator) timeRange(ids []uint64) (time.Time, time.Time) {
	var first, last time.Time
	for _, id := range ids {
		ev := c.byID[id]
		if ev == nil {
			continue
		}
		if first.IsZero() || ev.Timestamp.Before(first) {
			first = ev.Timestamp
		}
		if last.IsZero() || ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return first, last
}

func (c *eventCorrelator) store(e *Event) {
	clone := e.Clone()
	c.events = append(c.events, clone)
	c.byID[e.EventID] = &c.events[len(c.events)-1]

	if e.TraceID != "" {
		c.traceIndex[e.TraceID] = append(c.traceIndex[e.TraceID], e.EventID)
	}
	for k, v := range e.Entities {
		key := entityIndexKey(k, v)
		c.entityIndex[key] = append(c.entityIndex[key], e.EventID)
	}
	if e.ServiceName != "" {
		c.serviceIndex[e.ServiceName] = append(c.serviceIndex[e.ServiceName], e.EventID)
	}
}

// recentWithin returns a copy of stored events within window of asOf,
// ordered oldest first.
func (c *eventCorrelator) recentWithin(window time.Duration, asOf time.Time) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := asOf.Add(-window)
	out := make([]Event, 0)
	for _, ev := range c.events {
		if !ev.Timestamp.Before(cutoff) && ev.Timestamp.Before(asOf) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// cleanup evicts events older than maxAge relative to the latest stored
// event, rebuilds indices, and drops correlations whose last event is
// also older than maxAge.
func (c *eventCorrelator) cleanup(maxAge time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.events) == 0 {
		return
	}
	latest := c.events[len(c.events)-1].Timestamp
	for _, ev := range c.events {
		if ev.Timestamp.After(latest) {
			latest = ev.Timestamp
		}
	}
	cutoff := latest.Add(-maxAge)

	kept := c.events[:0]
	for _, ev := range c.events {
		if !ev.Timestamp.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	c.events = append([]Event(nil), kept...)

	c.byID = make(map[uint64]*Event, len(c.events))
	c.traceIndex = make(map[string][]uint64)
	c.entityIndex = make(map[string][]uint64)
	c.serviceIndex = make(map[string][]uint64)
	for i := range c.events {
		ev := &c.events[i]
		c.byID[ev.EventID] = ev
		if ev.TraceID != "" {
			c.traceIndex[ev.TraceID] = append(c.traceIndex[ev.TraceID], ev.EventID)
		}
		for k, v := range ev.Entities {
			key := entityIndexKey(k, v)
			c.entityIndex[key] = append(c.entityIndex[key], ev.EventID)
		}
		if ev.ServiceName != "" {
			c.serviceIndex[ev.ServiceName] = append(c.serviceIndex[ev.ServiceName], ev.EventID)
		}
	}

	var keptCorr []Correlation
	for _, corr := range c.correlations {
		if !corr.LastEventTime.Before(cutoff) {
			keptCorr = append(keptCorr, corr)
		}
	}
	c.correlations = keptCorr
}

func (c *eventCorrelator) allCorrelations() []Correlation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Correlation, len(c.correlations))
	copy(out, c.correlations)
	return out
}

// CorrelationEngine groups events sharing a trace/entity/service/time key,
// learns causal relationships between event types, and derives root-cause
// candidates for a given correlation. Composes eventCorrelator,
// CausalityAnalyzer, and RootCauseAnalyzer, matching the split of
// original_source/include/agentlog/correlation_engine.h.
type CorrelationEngine struct {
	correlator *eventCorrelator
	causality  *CausalityAnalyzer
	rootCause  *RootCauseAnalyzer
}

// NewCorrelationEngine constructs an engine with the built-in causal
// registrations from spec.md §4.5 pre-registered.
func NewCorrelationEngine() *CorrelationEngine {
	ce := &CorrelationEngine{
		correlator: newEventCorrelator(),
		causality:  newCausalityAnalyzer(),
		rootCause:  newRootCauseAnalyzer(),
	}
	registerBuiltinCausalRelationships(ce.causality)
	return ce
}

// Process runs correlation and causality learning for a single event
// exactly once (open question (c): avoid the duplicate-storage bug of
// running correlation from two call sites).
func (ce *CorrelationEngine) Process(e *Event) []Correlation {
	window := ce.correlator.recentWithin(60*time.Second, e.Timestamp)
	corrs := ce.correlator.correlate(e)
	ce.causality.learn(e, window)
	return corrs
}

// Cleanup evicts events and correlations older than maxAge.
func (ce *CorrelationEngine) Cleanup(maxAge time.Duration) {
	ce.correlator.cleanup(maxAge)
}

// Correlations returns a snapshot of all correlations produced so far.
func (ce *CorrelationEngine) Correlations() []Correlation {
	return ce.correlator.allCorrelations()
}

// Causality exposes the engine's causality analyzer.
func (ce *CorrelationEngine) Causality() *CausalityAnalyzer {
	return ce.causality
}

// RootCauseFor derives a root-cause candidate for the given correlation.
func (ce *CorrelationEngine) RootCauseFor(corr Correlation) *RootCause {
	return ce.rootCause.analyze(corr, ce.correlator)
}
