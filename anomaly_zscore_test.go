package agentlog

import (
	"testing"
	"time"
)

func metricEvent(name string, value float64) *Event {
	return &Event{
		EventID:   1,
		EventType: "metric.observed",
		Timestamp: time.Now(),
		Metrics:   map[string]float64{name: value},
	}
}

func TestZScoreDetectorRequiresThirtySamples(t *testing.T) {
	d := NewZScoreDetector(3.0)
	for i := 0; i < 29; i++ {
		d.Train(metricEvent("latency_ms", 50))
	}
	if score := d.Score(metricEvent("latency_ms", 5000)); score != 0 {
		t.Errorf("score with 29 samples = %v, want 0 (below the 30-sample floor)", score)
	}
	d.Train(metricEvent("latency_ms", 50))
	if score := d.Score(metricEvent("latency_ms", 5000)); score <= 0 {
		t.Errorf("score with 30 samples = %v, want > 0", score)
	}
}

func TestZScoreDetectorFlagsOutlier(t *testing.T) {
	d := NewZScoreDetector(3.0)
	for i := 0; i < 50; i++ {
		d.Train(metricEvent("latency_ms", 50))
	}
	// constant series: stddev is ~0, any deviation should score 1.0.
	if score := d.Score(metricEvent("latency_ms", 50)); score != 0 {
		t.Errorf("score for matching value on a constant series = %v, want 0", score)
	}
	if score := d.Score(metricEvent("latency_ms", 9999)); score != 1.0 {
		t.Errorf("score for outlier on constant series = %v, want 1.0", score)
	}
}

func TestZScoreDetectorScoreIsBoundedByTanh(t *testing.T) {
	d := NewZScoreDetector(3.0)
	for i := 0; i < 50; i++ {
		d.Train(metricEvent("latency_ms", float64(40+i%20)))
	}
	score := d.Score(metricEvent("latency_ms", 1000))
	if score < 0 || score > 1 {
		t.Errorf("score = %v, want value in [0, 1]", score)
	}
}

func TestZScoreDetectorIgnoresUnseenMetrics(t *testing.T) {
	d := NewZScoreDetector(3.0)
	for i := 0; i < 50; i++ {
		d.Train(metricEvent("latency_ms", 50))
	}
	if score := d.Score(metricEvent("queue_depth", 99999)); score != 0 {
		t.Errorf("score for a never-trained metric = %v, want 0", score)
	}
}
