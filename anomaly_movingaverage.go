package agentlog

import (
	"math"
	"sync"
)

// movingWindow is a per-metric fixed-capacity sliding window with its
// running sum, so the average is O(1) to recompute on each observation.
type movingWindow struct {
	values   []float64
	sum      float64
	capacity int
}

func (w *movingWindow) push(v float64) {
	w.values = append(w.values, v)
	w.sum += v
	if len(w.values) > w.capacity {
		w.sum -= w.values[0]
		w.values = w.values[1:]
	}
}

func (w *movingWindow) average() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return w.sum / float64(len(w.values))
}

func (w *movingWindow) meanAbsoluteDeviation() float64 {
	if len(w.values) == 0 {
		return 0
	}
	avg := w.average()
	sum := 0.0
	for _, v := range w.values {
		sum += math.Abs(v - avg)
	}
	return sum / float64(len(w.values))
}

// MovingAverageDetector scores deviation from a sliding-window average
// using mean-absolute-deviation in place of standard deviation.
type MovingAverageDetector struct {
	mu         sync.Mutex
	windowSize int
	threshold  float64
	windows    map[string]*movingWindow
}

// NewMovingAverageDetector constructs a detector with the given window
// size (spec default 100) and a MAD-normalization threshold of 3.0.
func NewMovingAverageDetector(windowSize int) *MovingAverageDetector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &MovingAverageDetector{
		windowSize: windowSize,
		threshold:  3.0,
		windows:    make(map[string]*movingWindow),
	}
}

// Score returns the maximum MAD-derived anomaly score across the event's
// metrics. Metrics with fewer than 10 observations contribute 0.
func (d *MovingAverageDetector) Score(e *Event) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	max := 0.0
	for name, value := range e.Metrics {
		w := d.windows[name]
		if w == nil || len(w.values) < 10 {
			continue
		}
		avg := w.average()
		mad := w.meanAbsoluteDeviation()
		if mad < 1e-6 {
			if math.Abs(value-avg) > 1e-6 {
				return 1.0
			}
			continue
		}
		dev := math.Abs(value-avg) / (d.threshold * mad)
		score := math.Tanh(dev)
		if score > max {
			max = score
		}
	}
	return max
}

// Train folds the event's metrics into each metric's sliding window.
func (d *MovingAverageDetector) Train(e *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, value := range e.Metrics {
		w := d.windows[name]
		if w == nil {
			w = &movingWindow{capacity: d.windowSize}
			d.windows[name] = w
		}
		w.push(value)
	}
}

// Name identifies the detector kind.
func (d *MovingAverageDetector) Name() string { return "moving_average" }
