package agentlog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// IncidentStatus is an incident's lifecycle state.
type IncidentStatus int

const (
	StatusOpen IncidentStatus = iota
	StatusInvestigating
	StatusIdentified
	StatusMonitoring
	StatusResolved
	StatusClosed
)

func (s IncidentStatus) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusInvestigating:
		return "INVESTIGATING"
	case StatusIdentified:
		return "IDENTIFIED"
	case StatusMonitoring:
		return "MONITORING"
	case StatusResolved:
		return "RESOLVED"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

func (s IncidentStatus) terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// IncidentSeverity is an incident's severity classification, distinct from
// an individual event's Severity.
type IncidentSeverity int

const (
	IncidentLow IncidentSeverity = iota
	IncidentMedium
	IncidentHigh
	IncidentCritical
)

func (s IncidentSeverity) String() string {
	switch s {
	case IncidentLow:
		return "LOW"
	case IncidentMedium:
		return "MEDIUM"
	case IncidentHigh:
		return "HIGH"
	case IncidentCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Incident is a synthesized problem record, possibly forwarded to
// external trackers.
type Incident struct {
	IncidentID  string
	Title       string
	Description string
	Severity    IncidentSeverity
	Status      IncidentStatus
	CreatedAt   time.Time
	ResolvedAt  time.Time

	EventIDs          []uint64
	RootCause         string
	RootCauseEventID  uint64
	AnomalyScore      float64

	AffectedServicesCount int
	AffectedUsersCount    int

	Labels      map[string]string
	Tags        []string
	ExternalIDs map[string]string
}

// IncidentCallback is invoked whenever an incident is created or its
// status changes. A failing callback must not prevent other callbacks
// from running.
type IncidentCallback func(*Incident)

// IncidentManager synthesizes, deduplicates, severity-classifies, and
// dispatches incidents. Grounded on original_source/src/incident_manager.cpp
// for title/description assembly, severity mapping, and deduplication, and
// on internal/alerts/scorer.go for the Go idiom of a cooldown-windowed,
// mutex-guarded synthesizer with an injectable clock.
type IncidentManager struct {
	mu sync.Mutex

	cfg   Config
	clock Clock

	incidents []*Incident
	byID      map[string]*Incident
	nextID    uint64

	integrations []Integration
	callbacks    []IncidentCallback

	deduplicated uint64
}

// NewIncidentManager constructs a manager using the given config's
// thresholds and an injectable clock.
func NewIncidentManager(cfg Config, clock Clock) *IncidentManager {
	if clock == nil {
		clock = systemClock
	}
	return &IncidentManager{
		cfg:   cfg,
		clock: clock,
		byID:  make(map[string]*Incident),
	}
}

// RegisterIntegration appends an external-tracker adapter to the ordered
// dispatch list.
func (m *IncidentManager) RegisterIntegration(i Integration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations = append(m.integrations, i)
}

// OnIncident registers a callback invoked on creation and status changes.
func (m *IncidentManager) OnIncident(cb IncidentCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Deduplicated reports how many would-be incidents were suppressed as
// duplicates of an existing one.
func (m *IncidentManager) Deduplicated() uint64 {
	return atomic.LoadUint64(&m.deduplicated)
}

// EvaluateEvent decides whether e (with its correlations and matched
// pattern names) should create a new incident, applying the threshold
// rules of spec.md §4.6. Returns the created incident, or nil if no
// threshold was crossed or the candidate was suppressed as a duplicate.
func (m *IncidentManager) EvaluateEvent(e *Event, correlations []Correlation, matchedPatterns []string) *Incident {
	anomalyThreshold := m.cfg.IncidentAnomalyThreshold
	if anomalyThreshold == 0 {
		anomalyThreshold = 0.75
	}
	patternThreshold := m.cfg.IncidentPatternThreshold
	if patternThreshold == 0 {
		patternThreshold = 1
	}
	correlationThreshold := m.cfg.IncidentCorrelationThreshold
	if correlationThreshold == 0 {
		correlationThreshold = 3
	}

	shouldCreate := e.AnomalyScore >= anomalyThreshold ||
		len(matchedPatterns) >= patternThreshold ||
		len(correlations) >= correlationThreshold

	if !shouldCreate {
		return nil
	}

	severity := m.classifySeverity(e.AnomalyScore, len(matchedPatterns), len(correlations))
	title := m.buildTitle(matchedPatterns, e.EventType)
	description := m.buildDescription(e, correlations, matchedPatterns)

	eventIDs := []uint64{e.EventID}

	m.mu.Lock()
	if dup := m.findDuplicateLocked(title, severity, eventIDs); dup != nil {
		atomic.AddUint64(&m.deduplicated, 1)
		m.mu.Unlock()
		return nil
	}

	m.nextID++
	incident := &Incident{
		IncidentID:   fmt.Sprintf("INC-%06d", m.nextID),
		Title:        title,
		Description:  description,
		Severity:     severity,
		Status:       StatusOpen,
		CreatedAt:    m.clock(),
		EventIDs:     eventIDs,
		AnomalyScore: e.AnomalyScore,
		Labels:       incidentLabels(e),
		Tags:         incidentTags(e, matchedPatterns),
		ExternalIDs:  make(map[string]string),
	}
	if e.ServiceName != "" {
		incident.AffectedServicesCount = 1
	}
	if e.Entity("user") != "" {
		incident.AffectedUsersCount = 1
	}

	m.incidents = append(m.incidents, incident)
	m.byID[incident.IncidentID] = incident
	integrations := append([]Integration(nil), m.integrations...)
	m.mu.Unlock()

	m.dispatchCreate(incident, integrations)
	m.fireCallbacks(incident)

	return incident
}

func incidentLabels(e *Event) map[string]string {
	labels := map[string]string{
		"severity":   e.Severity.String(),
		"event_type": e.EventType,
	}
	if e.ServiceName != "" {
		labels["service"] = e.ServiceName
	}
	return labels
}

func incidentTags(e *Event, matchedPatterns []string) []string {
	var tags []string
	if e.AnomalyScore >= 0.95 {
		tags = append(tags, "critical-anomaly")
	}
	for _, p := range matchedPatterns {
		tags = append(tags, "pattern:"+p)
	}
	return tags
}

func (m *IncidentManager) classifySeverity(score float64, patternCount, correlationCount int) IncidentSeverity {
	critical := m.cfg.CriticalThreshold
	if critical == 0 {
		critical = 0.95
	}
	high := m.cfg.HighThreshold
	if high == 0 {
		high = 0.85
	}
	medium := m.cfg.MediumThreshold
	if medium == 0 {
		medium = 0.75
	}

	switch {
	case score >= critical:
		return IncidentCritical
	case score >= high || patternCount >= 2:
		return IncidentHigh
	case score >= medium || correlationCount >= 5:
		return IncidentMedium
	default:
		return IncidentLow
	}
}

func (m *IncidentManager) buildTitle(matchedPatterns []string, eventType string) string {
	if len(matchedPatterns) > 0 {
		return fmt.Sprintf("Pattern detected: %s", matchedPatterns[0])
	}
	return fmt.Sprintf("Anomaly in %s", eventType)
}

func (m *IncidentManager) buildDescription(e *Event, correlations []Correlation, matchedPatterns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "anomaly_score=%.3f", e.AnomalyScore)

	if len(matchedPatterns) > 0 {
		fmt.Fprintf(&b, "; patterns=%s", strings.Join(matchedPatterns, ","))
	}

	if len(correlations) > 0 {
		reasons := make([]string, len(correlations))
		for i, c := range correlations {
			reasons[i] = c.Reason
		}
		fmt.Fprintf(&b, "; correlations=%s", strings.Join(reasons, "|"))
	}

	if e.Message != "" {
		fmt.Fprintf(&b, "; message=%s", e.Message)
	}

	if len(e.Entities) > 0 {
		keys := make([]string, 0, len(e.Entities))
		for k := range e.Entities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, e.Entities[k])
		}
		fmt.Fprintf(&b, "; entities={%s}", strings.Join(parts, ","))
	}

	if len(e.Metrics) > 0 {
		keys := make([]string, 0, len(e.Metrics))
		for k := range e.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%g", k, e.Metrics[k])
		}
		fmt.Fprintf(&b, "; metrics=[%s]", strings.Join(parts, ","))
	}

	return b.String()
}

// findDuplicateLocked must be called with m.mu held.
func (m *IncidentManager) findDuplicateLocked(title string, severity IncidentSeverity, eventIDs []uint64) *Incident {
	window := time.Duration(m.cfg.DeduplicationWindowSeconds) * time.Second
	if window == 0 {
		window = 5 * time.Minute
	}
	now := m.clock()

	for _, existing := range m.incidents {
		if existing.Status.terminal() {
			continue
		}
		if now.Sub(existing.CreatedAt) > window {
			continue
		}
		if existing.Title == title && existing.Severity == severity {
			return existing
		}
		if overlapFraction(existing.EventIDs, eventIDs) > 0.5 {
			return existing
		}
	}
	return nil
}

func overlapFraction(a, b []uint64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[uint64]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	shared := 0
	for _, id := range b {
		if set[id] {
			shared++
		}
	}
	return float64(shared) / float64(len(b))
}

func (m *IncidentManager) dispatchCreate(incident *Incident, integrations []Integration) {
	for _, integ := range integrations {
		externalID := func() (id string) {
			defer func() {
				if r := recover(); r != nil {
					id = integ.Name() + "-ERROR"
				}
			}()
			return integ.CreateIncident(*incident)
		}()
		m.mu.Lock()
		incident.ExternalIDs[integ.Name()] = externalID
		m.mu.Unlock()
	}
}

func (m *IncidentManager) fireCallbacks(incident *Incident) {
	m.mu.Lock()
	callbacks := append([]IncidentCallback(nil), m.callbacks...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() { recover() }()
			cb(incident)
		}()
	}
}

// UpdateStatus transitions an incident to a new status, firing callbacks.
// Returns false if the id is unknown.
func (m *IncidentManager) UpdateStatus(id string, status IncidentStatus) bool {
	m.mu.Lock()
	incident, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	incident.Status = status
	m.mu.Unlock()

	m.fireCallbacks(incident)
	return true
}

// ResolveIncident marks an incident RESOLVED, records the resolution as
// its root cause, notifies integrations, and fires callbacks. Unknown ids
// are a silent no-op per spec.md §7.
func (m *IncidentManager) ResolveIncident(id string, resolution string) bool {
	m.mu.Lock()
	incident, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	incident.Status = StatusResolved
	incident.ResolvedAt = m.clock()
	incident.RootCause = resolution
	integrations := append([]Integration(nil), m.integrations...)
	m.mu.Unlock()

	for _, integ := range integrations {
		func() {
			defer func() { recover() }()
			integ.ResolveIncident(incident.ExternalIDs[integ.Name()], resolution)
		}()
	}

	m.fireCallbacks(incident)
	return true
}

// GetIncident returns an incident by id.
func (m *IncidentManager) GetIncident(id string) (*Incident, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	incident, ok := m.byID[id]
	return incident, ok
}

// GetOpenIncidents returns incidents whose status is non-terminal.
func (m *IncidentManager) GetOpenIncidents() []*Incident {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Incident
	for _, incident := range m.incidents {
		if !incident.Status.terminal() {
			out = append(out, incident)
		}
	}
	return out
}

// GetAllIncidents returns every incident ever created, in creation order.
func (m *IncidentManager) GetAllIncidents() []*Incident {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Incident, len(m.incidents))
	copy(out, m.incidents)
	return out
}

// AutoResolveStaleIncidents resolves non-terminal incidents older than
// timeout with a standard root cause.
func (m *IncidentManager) AutoResolveStaleIncidents(timeout time.Duration) {
	m.mu.Lock()
	now := m.clock()
	var stale []*Incident
	for _, incident := range m.incidents {
		if !incident.Status.terminal() && now.Sub(incident.CreatedAt) > timeout {
			stale = append(stale, incident)
		}
	}
	m.mu.Unlock()

	for _, incident := range stale {
		m.ResolveIncident(incident.IncidentID, "Auto-resolved: no further activity")
	}
}
