package agentlog

import "testing"

type stubDetector struct {
	name  string
	score float64
	calls int
}

func (s *stubDetector) Score(e *Event) float64 { return s.score }
func (s *stubDetector) Train(e *Event)          { s.calls++ }
func (s *stubDetector) Name() string            { return s.name }

func TestEnsembleEmptyScoresZero(t *testing.T) {
	e := NewEnsemble(EnsembleMax)
	if got := e.Score(&Event{}); got != 0 {
		t.Errorf("empty ensemble score = %v, want 0", got)
	}
}

func TestEnsembleMaxMode(t *testing.T) {
	e := NewEnsemble(EnsembleMax)
	e.Add(&stubDetector{name: "a", score: 0.2}, 1.0)
	e.Add(&stubDetector{name: "b", score: 0.9}, 1.0)
	if got := e.Score(&Event{}); got != 0.9 {
		t.Errorf("max ensemble score = %v, want 0.9", got)
	}
}

func TestEnsembleAverageMode(t *testing.T) {
	e := NewEnsemble(EnsembleAverage)
	e.Add(&stubDetector{name: "a", score: 0.2}, 1.0)
	e.Add(&stubDetector{name: "b", score: 0.8}, 1.0)
	if got := e.Score(&Event{}); got != 0.5 {
		t.Errorf("average ensemble score = %v, want 0.5", got)
	}
}

func TestEnsembleWeightedMode(t *testing.T) {
	e := NewEnsemble(EnsembleWeighted)
	e.Add(&stubDetector{name: "a", score: 1.0}, 3.0)
	e.Add(&stubDetector{name: "b", score: 0.0}, 1.0)
	if got := e.Score(&Event{}); got != 0.75 {
		t.Errorf("weighted ensemble score = %v, want 0.75", got)
	}
}

func TestEnsembleVotingMode(t *testing.T) {
	e := NewEnsemble(EnsembleVoting)
	e.Add(&stubDetector{name: "a", score: 0.9}, 1.0)
	e.Add(&stubDetector{name: "b", score: 0.9}, 1.0)
	e.Add(&stubDetector{name: "c", score: 0.1}, 1.0)
	if got := e.Score(&Event{}); got != 2.0/3.0 {
		t.Errorf("voting ensemble score = %v, want 0.666...", got)
	}
}

func TestEnsembleTrainFansOutToEveryMember(t *testing.T) {
	a := &stubDetector{name: "a"}
	b := &stubDetector{name: "b"}
	e := NewEnsemble(EnsembleMax)
	e.Add(a, 1.0)
	e.Add(b, 1.0)
	e.Train(&Event{})
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("train calls a=%d b=%d, want 1 and 1", a.calls, b.calls)
	}
}

func TestDefaultEnsembleIsMaxOfThreeMembers(t *testing.T) {
	e := DefaultEnsemble(systemClock)
	if len(e.members) != 3 {
		t.Fatalf("default ensemble members = %d, want 3", len(e.members))
	}
	if e.mode != EnsembleMax {
		t.Errorf("default ensemble mode = %v, want EnsembleMax", e.mode)
	}
}
