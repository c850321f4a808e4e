package agentlog

import (
	"sync"
	"time"
)

// CausalKind classifies a learned or declared directed association between
// two event types.
type CausalKind int

const (
	CausalCauses CausalKind = iota
	CausalPrevents
	CausalEnables
	CausalPrecedes
)

func (k CausalKind) String() string {
	switch k {
	case CausalCauses:
		return "CAUSES"
	case CausalPrevents:
		return "PREVENTS"
	case CausalEnables:
		return "ENABLES"
	case CausalPrecedes:
		return "PRECEDES"
	default:
		return "UNKNOWN"
	}
}

// CausalRelationship is a directed association cause_event_type ->
// effect_event_type, either declared as a built-in or learned from
// observed event ordering.
type CausalRelationship struct {
	CauseEventType string
	EffectEventType string
	Kind           CausalKind
	Strength       float64
	TypicalDelay   time.Duration
	ObservedCount  int
}

type causalKey struct {
	cause, effect string
}

const causalStrengthIncrement = 0.05

// CausalityAnalyzer learns CausalRelationships by observing, for each
// incoming event, which event types preceded it within a recent context
// window. Grounded on original_source/include/agentlog/correlation_engine.h.
type CausalityAnalyzer struct {
	mu    sync.Mutex
	table map[causalKey]*CausalRelationship
}

func newCausalityAnalyzer() *CausalityAnalyzer {
	return &CausalityAnalyzer{table: make(map[causalKey]*CausalRelationship)}
}

// Register declares or overwrites a relationship directly, used for the
// built-in registrations seeded at construction.
func (a *CausalityAnalyzer) Register(rel CausalRelationship) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := causalKey{cause: rel.CauseEventType, effect: rel.EffectEventType}
	r := rel
	a.table[key] = &r
}

// learn upserts a PRECEDES relationship for every prior event in window,
// keyed by (cause_type, effect_type) where effect_type is e's type.
func (a *CausalityAnalyzer) learn(e *Event, window []Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, prior := range window {
		key := causalKey{cause: prior.EventType, effect: e.EventType}
		delay := e.Timestamp.Sub(prior.Timestamp)
		rel, ok := a.table[key]
		if !ok {
			a.table[key] = &CausalRelationship{
				CauseEventType:  prior.EventType,
				EffectEventType: e.EventType,
				Kind:            CausalPrecedes,
				Strength:        0.1,
				TypicalDelay:    delay,
				ObservedCount:   1,
			}
			continue
		}
		rel.ObservedCount++
		rel.TypicalDelay += (delay - rel.TypicalDelay) / time.Duration(rel.ObservedCount)
		rel.Strength += causalStrengthIncrement
		if rel.Strength > 1 {
			rel.Strength = 1
		}
	}
}

// Lookup returns the relationship for (cause, effect), if any.
func (a *CausalityAnalyzer) Lookup(cause, effect string) (CausalRelationship, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rel, ok := a.table[causalKey{cause: cause, effect: effect}]
	if !ok {
		return CausalRelationship{}, false
	}
	return *rel, true
}

// All returns a snapshot of every known relationship.
func (a *CausalityAnalyzer) All() []CausalRelationship {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]CausalRelationship, 0, len(a.table))
	for _, rel := range a.table {
		out = append(out, *rel)
	}
	return out
}

// registerBuiltinCausalRelationships seeds the three built-in causal
// registrations spec.md §4.5 names.
func registerBuiltinCausalRelationships(a *CausalityAnalyzer) {
	a.Register(CausalRelationship{
		CauseEventType: "database.slow", EffectEventType: "api.timeout",
		Kind: CausalCauses, Strength: 0.9, TypicalDelay: 500 * time.Millisecond, ObservedCount: 100,
	})
	a.Register(CausalRelationship{
		CauseEventType: "api.timeout", EffectEventType: "user.error",
		Kind: CausalCauses, Strength: 0.8, TypicalDelay: 100 * time.Millisecond, ObservedCount: 100,
	})
	a.Register(CausalRelationship{
		CauseEventType: "circuit_breaker.open", EffectEventType: "api.call",
		Kind: CausalPrevents, Strength: 1.0, TypicalDelay: 0, ObservedCount: 100,
	})
}
