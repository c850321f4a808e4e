package agentlog

import (
	"testing"
	"time"
)

func rateEvent(eventType string, at time.Time) *Event {
	return &Event{EventID: 1, EventType: eventType, Timestamp: at}
}

func TestRateDetectorNoBaselineScoresZero(t *testing.T) {
	d := NewRateDetector(60, nil)
	if score := d.Score(rateEvent("api.call", time.Now())); score != 0 {
		t.Errorf("score before any baseline = %v, want 0", score)
	}
}

// Directly seeds the detector's internal state so the spike/drop ratio is
// exact, rather than relying on many EMA-smoothed Train calls to converge.
func TestRateDetectorFlagsSpike(t *testing.T) {
	d := NewRateDetector(60, nil)
	now := time.Now()

	d.mu.Lock()
	d.states["api.call"] = &rateState{baseline: 0.1}
	for i := 0; i < 30; i++ {
		d.states["api.call"].timestamps = append(d.states["api.call"].timestamps, now.Add(-time.Duration(i)*time.Second))
	}
	d.mu.Unlock()

	// 30 events in the last 60s -> rate 0.5/s, ratio to baseline 0.1 is 5 (> 2).
	score := d.Score(rateEvent("api.call", now))
	if score <= 0 {
		t.Errorf("score for a 5x rate spike = %v, want > 0", score)
	}
	if score > 1 {
		t.Errorf("score = %v, want <= 1", score)
	}
}

func TestRateDetectorFlagsDrop(t *testing.T) {
	d := NewRateDetector(60, nil)
	now := time.Now()

	d.mu.Lock()
	d.states["api.call"] = &rateState{baseline: 1.0}
	// No timestamps within the window: current rate is 0, ratio 0 < 0.5.
	d.mu.Unlock()

	score := d.Score(rateEvent("api.call", now))
	if score != 1.0 {
		t.Errorf("score for a rate drop to zero = %v, want 1.0", score)
	}
}

func TestRateDetectorTrainUpdatesBaselineAndPrunes(t *testing.T) {
	d := NewRateDetector(60, nil)
	base := time.Now()
	for i := 0; i < 5; i++ {
		d.Train(rateEvent("api.call", base.Add(time.Duration(i)*time.Second)))
	}
	st := d.states["api.call"]
	if st == nil || st.baseline == 0 {
		t.Fatal("expected a non-zero baseline after training")
	}

	// An event far in the future should prune every earlier timestamp out
	// of the window.
	d.Train(rateEvent("api.call", base.Add(10*time.Minute)))
	if len(st.timestamps) != 1 {
		t.Errorf("timestamps after pruning = %d, want 1", len(st.timestamps))
	}
}
