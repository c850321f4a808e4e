package agentlog

import (
	"math"
	"testing"
	"time"
)

func seqEvent(id uint64, eventType string, at time.Time) Event {
	return Event{EventID: id, EventType: eventType, Timestamp: at}
}

func cascadingPattern() *SequentialPattern {
	return NewSequentialPattern("cascading_failure", "db slow -> api timeout -> user error", []SequentialStep{
		{EventType: "database.slow", MaxTimeSincePrev: 10 * time.Second},
		{EventType: "api.timeout", MaxTimeSincePrev: 10 * time.Second},
		{EventType: "user.error", MaxTimeSincePrev: 10 * time.Second},
	})
}

func TestSequentialPatternFullMatch(t *testing.T) {
	p := cascadingPattern()
	base := time.Now()
	history := []Event{
		seqEvent(1, "database.slow", base),
		seqEvent(2, "api.timeout", base.Add(2*time.Second)),
	}
	trigger := seqEvent(3, "user.error", base.Add(4*time.Second))

	if score := p.Match(&trigger, history); score != 1.0 {
		t.Errorf("full sequential match score = %v, want 1.0", score)
	}
}

func TestSequentialPatternLastStepMustMatch(t *testing.T) {
	p := cascadingPattern()
	trigger := seqEvent(1, "user.ok", time.Now())
	if score := p.Match(&trigger, nil); score != 0 {
		t.Errorf("score when trigger doesn't match last step = %v, want 0", score)
	}
}

func TestSequentialPatternPartialMatch(t *testing.T) {
	p := cascadingPattern()
	base := time.Now()
	// Missing the database.slow step entirely.
	history := []Event{
		seqEvent(1, "api.timeout", base.Add(2*time.Second)),
	}
	trigger := seqEvent(2, "user.error", base.Add(4*time.Second))

	score := p.Match(&trigger, history)
	if score <= 0 || score >= 1.0 {
		t.Errorf("partial match score = %v, want strictly between 0 and 1", score)
	}
}

func TestSequentialPatternRespectsWindow(t *testing.T) {
	p := cascadingPattern()
	base := time.Now()
	history := []Event{
		seqEvent(1, "database.slow", base),
		// api.timeout happens, but 20s after database.slow is too late
		// relative to the step's 10s window measured from the trigger side.
		seqEvent(2, "api.timeout", base.Add(20*time.Second)),
	}
	trigger := seqEvent(3, "user.error", base.Add(22*time.Second))

	score := p.Match(&trigger, history)
	if score >= 1.0 {
		t.Errorf("score with an out-of-window earlier step = %v, want < 1.0", score)
	}
}

func TestSequentialPatternSingleStepAlwaysMatchesFully(t *testing.T) {
	p := NewSequentialPattern("single", "one step", []SequentialStep{
		{EventType: "solo.event"},
	})
	trigger := seqEvent(1, "solo.event", time.Now())
	if score := p.Match(&trigger, nil); score != 1.0 {
		t.Errorf("single-step match score = %v, want 1.0", score)
	}
}

func TestSequentialPatternTrainIsNoOp(t *testing.T) {
	p := cascadingPattern()
	trigger := seqEvent(1, "user.error", time.Now())
	// Without history only the last step matches, giving the partial score.
	before := p.Match(&trigger, nil)
	// One of three steps matched: (1 - 2/3) * 0.5 = 1/6.
	if math.Abs(before-1.0/6.0) > 1e-9 {
		t.Errorf("match without history = %v, want 1/6 (partial score)", before)
	}
	p.Train(&trigger) // must not panic and must not change future Match results
	if score := p.Match(&trigger, nil); score != before {
		t.Errorf("after Train, match without history = %v, want %v (unchanged partial score)", score, before)
	}
}
