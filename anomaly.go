package agentlog

import "sync"

// AnomalyDetector scores an event's metrics against a learned baseline and
// updates that baseline. Training happens after scoring so a genuinely
// novel first observation can still be flagged. Implementations guard
// their own internal state with their own mutex. Grounded on
// original_source/include/agentlog/anomaly_detector.h for the algorithm
// shapes and internal/alerts/scorer.go for the Go idiom of per-key sliding
// state behind a single mutex with an injectable clock.
type AnomalyDetector interface {
	Score(e *Event) float64
	Train(e *Event)
	Name() string
}

// EnsembleMode selects how an Ensemble combines its members' scores.
type EnsembleMode int

const (
	// EnsembleMax takes the maximum score across members (default).
	EnsembleMax EnsembleMode = iota
	// EnsembleAverage takes the unweighted mean.
	EnsembleAverage
	// EnsembleWeighted takes the weighted mean.
	EnsembleWeighted
	// EnsembleVoting returns the fraction of members scoring above 0.5.
	EnsembleVoting
)

type weightedDetector struct {
	detector AnomalyDetector
	weight   float64
}

// Ensemble combines a heterogeneous set of detectors, each with a weight,
// under a chosen combination mode.
type Ensemble struct {
	mu      sync.Mutex
	members []weightedDetector
	mode    EnsembleMode
}

// NewEnsemble constructs an empty ensemble in the given combine mode.
func NewEnsemble(mode EnsembleMode) *Ensemble {
	return &Ensemble{mode: mode}
}

// DefaultEnsemble returns the ensemble spec.md §4.3 names as the default
// construction: Z-score(3.0) weight 1.0, MovingAverage(100) weight 1.0,
// Rate(60s) weight 0.8, mode MAX.
func DefaultEnsemble(clock Clock) *Ensemble {
	e := NewEnsemble(EnsembleMax)
	e.Add(NewZScoreDetector(3.0), 1.0)
	e.Add(NewMovingAverageDetector(100), 1.0)
	e.Add(NewRateDetector(60, clock), 0.8)
	return e
}

// Add registers a detector with the given weight.
func (e *Ensemble) Add(d AnomalyDetector, weight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.members = append(e.members, weightedDetector{detector: d, weight: weight})
}

// Score combines member scores per the ensemble's mode.
func (e *Ensemble) Score(ev *Event) float64 {
	e.mu.Lock()
	members := make([]weightedDetector, len(e.members))
	copy(members, e.members)
	mode := e.mode
	e.mu.Unlock()

	if len(members) == 0 {
		return 0
	}

	scores := make([]float64, len(members))
	for i, m := range members {
		scores[i] = m.detector.Score(ev)
	}

	switch mode {
	case EnsembleAverage:
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		return sum / float64(len(scores))
	case EnsembleWeighted:
		var wsum, weightTotal float64
		for i, s := range scores {
			wsum += s * members[i].weight
			weightTotal += members[i].weight
		}
		if weightTotal == 0 {
			return 0
		}
		return wsum / weightTotal
	case EnsembleVoting:
		votes := 0
		for _, s := range scores {
			if s > 0.5 {
				votes++
			}
		}
		return float64(votes) / float64(len(scores))
	default: // EnsembleMax
		max := 0.0
		for _, s := range scores {
			if s > max {
				max = s
			}
		}
		return max
	}
}

// Train fans training out to every member.
func (e *Ensemble) Train(ev *Event) {
	e.mu.Lock()
	members := make([]weightedDetector, len(e.members))
	copy(members, e.members)
	e.mu.Unlock()

	for _, m := range members {
		m.detector.Train(ev)
	}
}

// Name identifies the detector kind.
func (e *Ensemble) Name() string { return "ensemble" }
