package agentlog

import (
	"math"
	"sync"
)

// welfordState is Welford's online algorithm for running mean/variance.
type welfordState struct {
	count int64
	mean  float64
	m2    float64
}

func (w *welfordState) update(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

func (w *welfordState) stddev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}

// ZScoreDetector maintains a Welford running (count, mean, M2) per metric
// name and scores by how many standard deviations a new value sits from
// the learned mean.
type ZScoreDetector struct {
	mu        sync.Mutex
	threshold float64
	states    map[string]*welfordState
}

// NewZScoreDetector constructs a detector with the given tanh-normalization
// threshold (spec default 3.0).
func NewZScoreDetector(threshold float64) *ZScoreDetector {
	return &ZScoreDetector{
		threshold: threshold,
		states:    make(map[string]*welfordState),
	}
}

// Score returns the maximum z-score-derived anomaly score across the
// event's metrics. Metrics with fewer than 30 observations contribute 0.
func (d *ZScoreDetector) Score(e *Event) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	max := 0.0
	for name, value := range e.Metrics {
		st := d.states[name]
		if st == nil || st.count < 30 {
			continue
		}
		sd := st.stddev()
		if sd < 1e-6 {
			if math.Abs(value-st.mean) > 1e-6 {
				return 1.0
			}
			continue
		}
		z := math.Abs(value-st.mean) / sd
		score := math.Tanh(z / d.threshold)
		if score > max {
			max = score
		}
	}
	return max
}

// Train folds the event's metrics into the running statistics.
func (d *ZScoreDetector) Train(e *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, value := range e.Metrics {
		st := d.states[name]
		if st == nil {
			st = &welfordState{}
			d.states[name] = st
		}
		st.update(value)
	}
}

// Name identifies the detector kind.
func (d *ZScoreDetector) Name() string { return "zscore" }
