package agentlog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"
)

// SigmaPattern wraps a single compiled Sigma detection rule as a fourth
// PatternMatcher kind, alongside Sequential/Frequency/Regex. It scores 1.0
// on match, 0.0 otherwise, and reports the rule's title as its name.
// Stateless: Train is a no-op. Grounded on internal/rules/sigma_engine.go,
// generalized from Sysmon field maps to the Entities/Context field maps
// this library's Event carries.
type SigmaPattern struct {
	rule  sigma.Rule
	eval  *sigmaevaluator.RuleEvaluator
	title string
	ctx   context.Context
}

// LoadSigmaRules walks dir for .yml/.yaml files, compiling one SigmaPattern
// per rule that is a simple single-event rule (no timeframe, no
// aggregation, no keyword search) and registering it with the engine.
// Unsupported or unparsable files are skipped; the returned count is the
// number of patterns actually registered.
func (p *PatternEngine) LoadSigmaRules(dir string) (int, error) {
	resolved, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("agentlog: resolve sigma rule path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(resolved, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		lower := strings.ToLower(path)
		if strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("agentlog: walk sigma rule directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		rule, err := sigma.ParseRule(raw)
		if err != nil {
			continue
		}
		if !isSimpleSingleEventSigmaRule(rule) {
			continue
		}
		p.Register(&SigmaPattern{
			rule:  rule,
			eval:  sigmaevaluator.ForRule(rule),
			title: strings.TrimSpace(rule.Title),
			ctx:   context.Background(),
		})
		loaded++
	}
	return loaded, nil
}

func isSimpleSingleEventSigmaRule(rule sigma.Rule) bool {
	if rule.Detection.Timeframe > 0 {
		return false
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil {
			return false
		}
		if !isSimpleSigmaSearchExpression(cond.Search) {
			return false
		}
	}
	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 {
			return false
		}
		if len(search.EventMatchers) == 0 {
			return false
		}
	}
	return true
}

func isSimpleSigmaSearchExpression(expr sigma.SearchExpr) bool {
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.And:
		for _, child := range e {
			if !isSimpleSigmaSearchExpression(child) {
				return false
			}
		}
		return true
	case sigma.Or:
		for _, child := range e {
			if !isSimpleSigmaSearchExpression(child) {
				return false
			}
		}
		return true
	case sigma.Not:
		return isSimpleSigmaSearchExpression(e.Expr)
	default:
		return false
	}
}

// sigmaFieldMap flattens an event's entities and context into the
// map[string]interface{} the evaluator matches field predicates against.
func sigmaFieldMap(e *Event) map[string]interface{} {
	buf := make(map[string]interface{}, len(e.Entities)+len(e.Context)+4)
	for k, v := range e.Entities {
		buf[k] = v
	}
	for k, v := range e.Context {
		buf[k] = v
	}
	buf["event_type"] = e.EventType
	buf["message"] = e.Message
	buf["severity"] = e.Severity.String()
	if e.ServiceName != "" {
		buf["service"] = e.ServiceName
	}
	return buf
}

// Match implements PatternMatcher.
func (p *SigmaPattern) Match(e *Event, history []Event) float64 {
	res, err := p.eval.Matches(p.ctx, sigmaFieldMap(e))
	if err != nil || !res.Match {
		return 0
	}
	return 1.0
}

// Train is a no-op: Sigma rules carry no learned state.
func (p *SigmaPattern) Train(e *Event) {}

// Name returns the rule's title.
func (p *SigmaPattern) Name() string { return p.title }

// Description returns the rule's title (Sigma rules carry no separate
// long-form description field usable here).
func (p *SigmaPattern) Description() string { return p.title }
