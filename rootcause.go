package agentlog

import "fmt"

// RootCause is the result of analyzing a Correlation for its most likely
// originating event.
type RootCause struct {
	EventID    uint64
	EventType  string
	Confidence float64
	Evidence   []string
}

// RootCauseAnalyzer picks the earliest event in a correlation (by
// monotonic id) as the candidate root cause. Grounded on
// original_source/include/agentlog/correlation_engine.h.
type RootCauseAnalyzer struct{}

func newRootCauseAnalyzer() *RootCauseAnalyzer { return &RootCauseAnalyzer{} }

func (a *RootCauseAnalyzer) analyze(corr Correlation, correlator *eventCorrelator) *RootCause {
	if len(corr.EventIDs) == 0 {
		return nil
	}

	rootID := corr.EventIDs[0]
	for _, id := range corr.EventIDs[1:] {
		if id < rootID {
			rootID = id
		}
	}

	correlator.mu.Lock()
	rootEvent := correlator.byID[rootID]
	correlator.mu.Unlock()

	eventType := ""
	if rootEvent != nil {
		eventType = rootEvent.EventType
	}

	evidence := []string{
		fmt.Sprintf("earliest of %d correlated events by id", len(corr.EventIDs)),
		fmt.Sprintf("correlation type %s, reason: %s", corr.CorrelationType, corr.Reason),
	}
	if !corr.FirstEventTime.IsZero() && !corr.LastEventTime.IsZero() {
		evidence = append(evidence, fmt.Sprintf("span %s to %s",
			corr.FirstEventTime.Format("15:04:05.000"), corr.LastEventTime.Format("15:04:05.000")))
	}

	return &RootCause{
		EventID:    rootID,
		EventType:  eventType,
		Confidence: corr.Confidence * 0.7,
		Evidence:   evidence,
	}
}
