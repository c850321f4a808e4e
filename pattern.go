package agentlog

import (
	"sort"
	"sync"
)

// PatternMatcher is a declarative matcher over the current event plus a
// bounded slice of recent history. Implementations guard their own
// internal state with their own mutex. Grounded on
// internal/analyzer/staged.go and internal/analyzer/rules.go for
// sequential matching and internal/analyzer/temporal.go for
// frequency/burst counting.
type PatternMatcher interface {
	Match(e *Event, history []Event) float64
	Train(e *Event)
	Name() string
	Description() string
}

// PatternMatch is one matcher's result above the report threshold.
type PatternMatch struct {
	Name  string
	Score float64
}

// PatternEngine holds the registered matchers and reports all matches
// above 0.5, sorted by descending score.
type PatternEngine struct {
	mu       sync.Mutex
	matchers []PatternMatcher
}

// NewPatternEngine constructs an empty engine.
func NewPatternEngine() *PatternEngine {
	return &PatternEngine{}
}

// Register adds a matcher.
func (p *PatternEngine) Register(m PatternMatcher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matchers = append(p.matchers, m)
}

// MatchAll evaluates every registered matcher and returns those scoring
// above 0.5, sorted by descending score.
func (p *PatternEngine) MatchAll(e *Event, history []Event) []PatternMatch {
	p.mu.Lock()
	matchers := make([]PatternMatcher, len(p.matchers))
	copy(matchers, p.matchers)
	p.mu.Unlock()

	var out []PatternMatch
	for _, m := range matchers {
		score := m.Match(e, history)
		if score > 0.5 {
			out = append(out, PatternMatch{Name: m.Name(), Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// TrainAll feeds the event to every registered matcher.
func (p *PatternEngine) TrainAll(e *Event) {
	p.mu.Lock()
	matchers := make([]PatternMatcher, len(p.matchers))
	copy(matchers, p.matchers)
	p.mu.Unlock()

	for _, m := range matchers {
		m.Train(e)
	}
}
