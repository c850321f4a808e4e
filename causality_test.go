package agentlog

import (
	"math"
	"testing"
	"time"
)

func TestCausalityLearnFirstObservationSeedsRelationship(t *testing.T) {
	a := newCausalityAnalyzer()
	base := time.Now()

	prior := Event{EventID: 1, EventType: "cache.miss", Timestamp: base}
	effect := Event{EventID: 2, EventType: "db.query", Timestamp: base.Add(50 * time.Millisecond)}

	a.learn(&effect, []Event{prior})

	rel, ok := a.Lookup("cache.miss", "db.query")
	if !ok {
		t.Fatal("expected a relationship to be created")
	}
	if rel.Kind != CausalPrecedes || rel.Strength != 0.1 || rel.ObservedCount != 1 {
		t.Errorf("seeded relationship = %+v, want PRECEDES, strength 0.1, count 1", rel)
	}
	if rel.TypicalDelay != 50*time.Millisecond {
		t.Errorf("typical delay = %v, want 50ms", rel.TypicalDelay)
	}
}

func TestCausalityLearnAccumulatesStrengthAndAveragesDelay(t *testing.T) {
	a := newCausalityAnalyzer()
	base := time.Now()

	prior := Event{EventID: 1, EventType: "cache.miss", Timestamp: base}
	first := Event{EventID: 2, EventType: "db.query", Timestamp: base.Add(100 * time.Millisecond)}
	a.learn(&first, []Event{prior})

	second := Event{EventID: 3, EventType: "db.query", Timestamp: base.Add(300 * time.Millisecond)}
	a.learn(&second, []Event{prior})

	rel, _ := a.Lookup("cache.miss", "db.query")
	if rel.ObservedCount != 2 {
		t.Fatalf("observed count = %d, want 2", rel.ObservedCount)
	}
	// 0.1 + 0.05 in float64 is not bit-identical to the literal 0.15.
	if math.Abs(rel.Strength-0.15) > 1e-9 {
		t.Errorf("strength after 2 observations = %v, want 0.15", rel.Strength)
	}
	// running mean of 100ms and 300ms is 200ms
	if rel.TypicalDelay != 200*time.Millisecond {
		t.Errorf("typical delay = %v, want 200ms", rel.TypicalDelay)
	}
}

func TestCausalityStrengthCapsAtOne(t *testing.T) {
	a := newCausalityAnalyzer()
	a.Register(CausalRelationship{
		CauseEventType: "x", EffectEventType: "y",
		Kind: CausalCauses, Strength: 0.98, ObservedCount: 1,
	})
	prior := Event{EventType: "x", Timestamp: time.Now()}
	effect := Event{EventType: "y", Timestamp: time.Now().Add(time.Second)}
	a.learn(&effect, []Event{prior})

	rel, _ := a.Lookup("x", "y")
	if rel.Strength != 1.0 {
		t.Errorf("strength = %v, want capped at 1.0", rel.Strength)
	}
}

func TestCausalityAllIncludesBuiltins(t *testing.T) {
	a := newCausalityAnalyzer()
	registerBuiltinCausalRelationships(a)
	if len(a.All()) != 3 {
		t.Errorf("relationships after seeding builtins = %d, want 3", len(a.All()))
	}
	rel, ok := a.Lookup("circuit_breaker.open", "api.call")
	if !ok || rel.Kind != CausalPrevents {
		t.Errorf("circuit_breaker.open -> api.call = %+v, want a PREVENTS relationship", rel)
	}
}
