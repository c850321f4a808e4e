package agentlog

import (
	"sync"
	"time"
)

const rateDetectorEMAAlpha = 0.1

type rateState struct {
	timestamps []time.Time
	baseline   float64
}

// RateDetector tracks the event rate per event type over a sliding window
// and flags sudden spikes or drops against an EMA-smoothed baseline.
type RateDetector struct {
	mu     sync.Mutex
	window time.Duration
	clock  Clock
	states map[string]*rateState
}

// NewRateDetector constructs a detector with the given window (spec
// default 60s).
func NewRateDetector(windowSeconds int, clock Clock) *RateDetector {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	if clock == nil {
		clock = systemClock
	}
	return &RateDetector{
		window: time.Duration(windowSeconds) * time.Second,
		clock:  clock,
		states: make(map[string]*rateState),
	}
}

func (d *RateDetector) currentRate(st *rateState, asOf time.Time) float64 {
	cutoff := asOf.Add(-d.window)
	count := 0
	for _, ts := range st.timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	seconds := d.window.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(count) / seconds
}

// Score flags the event if its event type's current rate has spiked above
// or dropped below its learned baseline.
func (d *RateDetector) Score(e *Event) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.states[e.EventType]
	if st == nil || st.baseline == 0 {
		return 0
	}
	rate := d.currentRate(st, e.Timestamp)
	ratio := rate / st.baseline

	switch {
	case ratio > 2:
		score := (ratio - 2) / 3
		if score > 1 {
			score = 1
		}
		return score
	case ratio < 0.5:
		score := (0.5 - ratio) / 0.5
		if score > 1 {
			score = 1
		}
		return score
	default:
		return 0
	}
}

// Train records the event's timestamp and updates the EMA baseline.
func (d *RateDetector) Train(e *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.states[e.EventType]
	if st == nil {
		st = &rateState{}
		d.states[e.EventType] = st
	}
	st.timestamps = append(st.timestamps, e.Timestamp)

	cutoff := e.Timestamp.Add(-d.window)
	pruned := st.timestamps[:0]
	for _, ts := range st.timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	st.timestamps = pruned

	rate := d.currentRate(st, e.Timestamp)
	if st.baseline == 0 {
		st.baseline = rate
	} else {
		st.baseline = rateDetectorEMAAlpha*rate + (1-rateDetectorEMAAlpha)*st.baseline
	}
}

// Name identifies the detector kind.
func (d *RateDetector) Name() string { return "rate" }
