package agentlog

import (
	"regexp"
	"time"
)

// SequentialStep is one ordered step of a SequentialPattern.
type SequentialStep struct {
	EventType        string
	RequiredEntities []string
	EntityPattern    map[string]*regexp.Regexp
	MaxTimeSincePrev time.Duration
}

func (s SequentialStep) matches(e *Event) bool {
	if e.EventType != s.EventType {
		return false
	}
	for _, key := range s.RequiredEntities {
		if e.Entity(key) == "" {
			return false
		}
	}
	for key, re := range s.EntityPattern {
		if !re.MatchString(e.Entity(key)) {
			return false
		}
	}
	return true
}

// SequentialPattern matches an ordered sequence of steps against an
// event's recent history, walking backwards from the triggering event
// (which must satisfy the last step) to the earliest step. Each earlier
// step must be satisfied by some history event no older than that step's
// max-time-since-previous window, measured against the event that
// satisfied the step after it. Stateless beyond its step definitions, so
// Train is a no-op; matching reads only the history slice it is given.
type SequentialPattern struct {
	name  string
	desc  string
	steps []SequentialStep
}

// NewSequentialPattern constructs a named sequential pattern.
func NewSequentialPattern(name, desc string, steps []SequentialStep) *SequentialPattern {
	return &SequentialPattern{name: name, desc: desc, steps: steps}
}

// Match implements PatternMatcher.
func (p *SequentialPattern) Match(e *Event, history []Event) float64 {
	if len(p.steps) == 0 {
		return 0
	}
	last := p.steps[len(p.steps)-1]
	if !last.matches(e) {
		return 0
	}
	if len(p.steps) == 1 {
		return 1.0
	}

	matched := 1
	cursor := e.Timestamp
	for idx := len(p.steps) - 2; idx >= 0; idx-- {
		step := p.steps[idx]
		found := false
		for j := len(history) - 1; j >= 0; j-- {
			cand := history[j]
			if cand.Timestamp.After(cursor) {
				continue
			}
			delta := cursor.Sub(cand.Timestamp)
			if delta > step.MaxTimeSincePrev {
				break
			}
			if step.matches(&cand) {
				found = true
				cursor = cand.Timestamp
				break
			}
		}
		if !found {
			break
		}
		matched++
	}

	if matched == len(p.steps) {
		return 1.0
	}
	remaining := len(p.steps) - matched
	return (1 - float64(remaining)/float64(len(p.steps))) * 0.5
}

// Train is a no-op: the pattern holds no learned state.
func (p *SequentialPattern) Train(e *Event) {}

// Name identifies the pattern.
func (p *SequentialPattern) Name() string { return p.name }

// Description describes the pattern.
func (p *SequentialPattern) Description() string { return p.desc }
