package agentlog

import "regexp"

// RegexField selects which part of an event a RegexPattern matches
// against.
type RegexField int

const (
	// RegexFieldMessage matches against the event's message.
	RegexFieldMessage RegexField = iota
	// RegexFieldEventType matches against the event's type string.
	RegexFieldEventType
	// RegexFieldEntity matches against a named entity's value.
	RegexFieldEntity
)

// RegexPattern matches a compiled regular expression against one of
// message, event_type, or a named entity. Stateless: Train is a no-op.
type RegexPattern struct {
	name       string
	desc       string
	field      RegexField
	entityName string
	re         *regexp.Regexp
}

// NewRegexPattern constructs a regex pattern matching against the given
// field. entityName is only consulted for RegexFieldEntity.
func NewRegexPattern(name, desc string, field RegexField, entityName string, re *regexp.Regexp) *RegexPattern {
	return &RegexPattern{name: name, desc: desc, field: field, entityName: entityName, re: re}
}

// Match implements PatternMatcher.
func (p *RegexPattern) Match(e *Event, history []Event) float64 {
	var subject string
	switch p.field {
	case RegexFieldEventType:
		subject = e.EventType
	case RegexFieldEntity:
		subject = e.Entity(p.entityName)
	default:
		subject = e.Message
	}
	if p.re.MatchString(subject) {
		return 1.0
	}
	return 0
}

// Train is a no-op: the pattern holds no learned state.
func (p *RegexPattern) Train(e *Event) {}

// Name identifies the pattern.
func (p *RegexPattern) Name() string { return p.name }

// Description describes the pattern.
func (p *RegexPattern) Description() string { return p.desc }
