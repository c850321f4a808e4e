package agentlog

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"agentlog/internal/obslog"

	"github.com/prometheus/client_golang/prometheus"
)

const anomalyCallbackThreshold = 0.7

// Logger is the process-wide pipeline coordinator: sampling, worker pool,
// history buffer, stats, callback fan-out, file sink. Grounded on
// internal/logger/logger.go for the global-singleton-with-resettable-
// instance shape and internal/pipeline/adjacency_redis_pipeline.go for the
// worker-pool read/process/write loop, adapted from Redis-polling to
// blocking in-process queue pop.
type Logger struct {
	cfg   Config
	clock Clock

	mu      sync.Mutex
	started bool
	stopped bool

	queue *eventQueue
	wg    sync.WaitGroup

	eventIDCounter uint64

	stats *statsRegistry

	anomalyDetector   *Ensemble
	patternEngine     *PatternEngine
	correlationEngine *CorrelationEngine
	incidentManager   *IncidentManager

	historyMu sync.Mutex
	history   []Event

	callbackMu       sync.Mutex
	eventCallbacks   []func(Event)
	anomalyCallbacks []func(Event)

	fileMu  sync.Mutex
	logFile *os.File
}

const maxHistorySize = 1000

// NewLogger constructs an instance with its own pipeline components. Does
// not start workers or open the log file; call Start (or the package-level
// Init) to do so. Constructing instances directly, rather than only going
// through the ambient package-level handle, is what lets tests build
// isolated instances (spec.md §9's process-wide-singleton design note).
func NewLogger(cfg Config) *Logger {
	applyConfigDefaults(&cfg)
	clock := Clock(systemClock)
	l := &Logger{
		cfg:               cfg,
		clock:             clock,
		stats:             newStatsRegistry(),
		anomalyDetector:   DefaultEnsemble(clock),
		patternEngine:     NewPatternEngine(),
		correlationEngine: NewCorrelationEngine(),
		incidentManager:   NewIncidentManager(cfg, clock),
	}
	registerBuiltinPatterns(l.patternEngine)
	return l
}

// now returns the logger's current time via its injectable clock.
func (l *Logger) now() time.Time { return l.clock() }

func (l *Logger) nextEventID() uint64 {
	return atomic.AddUint64(&l.eventIDCounter, 1) - 1
}

// Start opens the configured log file and launches the worker pool.
// Idempotent-with-warning: a second Start without an intervening Shutdown
// is a no-op that prints a notice to stderr, matching spec.md §4.7's
// init-twice configuration-error kind.
func (l *Logger) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		fmt.Fprintln(os.Stderr, "agentlog: Init called twice without Shutdown; ignoring")
		return nil
	}

	if err := obslog.Init(true, "info", l.cfg.LogFilePath, boolOr(l.cfg.LogToConsole, true)); err != nil {
		return fmt.Errorf("agentlog: init operational logger: %w", err)
	}

	if l.cfg.LogFilePath != "" {
		dir := filepath.Dir(l.cfg.LogFilePath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("agentlog: create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(l.cfg.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("agentlog: open log file: %w", err)
		}
		l.logFile = f
	}

	l.queue = newEventQueue(l.cfg.AsyncQueueSize)
	l.started = true

	for i := 0; i < intOr(l.cfg.WorkerThreads, 2); i++ {
		l.wg.Add(1)
		go l.workerLoop()
	}
	return nil
}

// Shutdown sets the shutdown flag, signals the queue, joins workers
// (which drain remaining items first), and closes the log file.
// Idempotent: a second call is a no-op with identical post-state.
func (l *Logger) Shutdown() error {
	l.mu.Lock()
	if !l.started || l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	q := l.queue
	l.mu.Unlock()

	if q != nil {
		q.shutdown()
	}
	l.wg.Wait()

	l.fileMu.Lock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
	l.fileMu.Unlock()
	return nil
}

func (l *Logger) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started && !l.stopped
}

// Event starts a fluent builder for an event of the given type.
func (l *Logger) Event(eventType string) *EventBuilder {
	return newEventBuilder(l, eventType)
}

// Observe is sugar for Event("metric.observed") with
// context["metric_name"] pre-populated.
func (l *Logger) Observe(metricName string) *EventBuilder {
	return l.Event("metric.observed").Context("metric_name", metricName)
}

// Stats returns a snapshot of the lifetime counters.
func (l *Logger) Stats() Stats {
	return l.stats.snapshot()
}

// Registry exposes the private Prometheus registry backing Stats, so a
// host process can mount it on its own /metrics endpoint.
func (l *Logger) Registry() *prometheus.Registry {
	return l.stats.registry
}

// Incidents exposes the incident manager for integration registration and
// lifecycle queries.
func (l *Logger) Incidents() *IncidentManager {
	return l.incidentManager
}

// Correlations exposes the correlation engine for causality/root-cause
// queries.
func (l *Logger) Correlations() *CorrelationEngine {
	return l.correlationEngine
}

// Patterns exposes the pattern engine so callers can register additional
// matchers, including Sigma rule directories via LoadSigmaRules.
func (l *Logger) Patterns() *PatternEngine {
	return l.patternEngine
}

// OnEvent registers a callback invoked for every processed event.
func (l *Logger) OnEvent(cb func(Event)) {
	l.callbackMu.Lock()
	defer l.callbackMu.Unlock()
	l.eventCallbacks = append(l.eventCallbacks, cb)
}

// OnAnomaly registers a callback invoked for events whose score crosses
// the hard-coded 0.7 anomaly threshold (spec.md §9's deliberate split from
// the configurable incident threshold).
func (l *Logger) OnAnomaly(cb func(Event)) {
	l.callbackMu.Lock()
	defer l.callbackMu.Unlock()
	l.anomalyCallbacks = append(l.anomalyCallbacks, cb)
}

// History returns a snapshot of the bounded recent-event ring (capped at
// 1000), oldest first.
func (l *Logger) History() []Event {
	l.historyMu.Lock()
	defer l.historyMu.Unlock()
	out := make([]Event, len(l.history))
	copy(out, l.history)
	return out
}

func (l *Logger) noteInvalidMetric(key string) {
	obslog.Warnf("dropping non-finite metric %q", key)
}

// emit is the producer-thread entry point: score (read-only, for the
// sampling decision and the event's permanent anomaly_score — the
// pipeline's anomaly stage mutates the score exactly once), sample, then
// enqueue.
func (l *Logger) emit(e Event) {
	if !l.running() {
		l.dumpUninitialized(e)
		return
	}

	if boolOr(l.cfg.EnableAnomalyDetection, true) {
		e.AnomalyScore = l.anomalyDetector.Score(&e)
	}

	l.stats.incEventsTotal()

	if !l.shouldSample(e.AnomalyScore, e.Severity) {
		l.stats.incEventsDropped()
		return
	}
	if !l.queue.push(e) {
		l.stats.incEventsDropped()
	}
}

// dumpUninitialized degrades an emission that happened before Start (or
// after Shutdown) to a stderr dump rather than crashing, per spec.md §7's
// uninitialized-emission error kind.
func (l *Logger) dumpUninitialized(e Event) {
	fmt.Fprintf(os.Stderr, "agentlog: emit before init/after shutdown: %s %s\n", e.EventType, e.Message)
}

func (l *Logger) shouldSample(score float64, severity Severity) bool {
	if boolOr(l.cfg.SampleAnomaliesAlways, true) && (score >= anomalyCallbackThreshold || severity >= Error) {
		return true
	}
	rate := l.cfg.SamplingRate
	if rate <= 0 {
		rate = 1.0
	}
	if rate >= 1.0 {
		return true
	}
	return rand.Float64() < rate
}

func (l *Logger) workerLoop() {
	defer l.wg.Done()
	for {
		e, ok := l.queue.pop()
		if !ok {
			return
		}
		l.process(e)
	}
}

func (l *Logger) process(e Event) {
	if boolOr(l.cfg.EnableAnomalyDetection, true) {
		l.anomalyDetector.Train(&e)
		if e.AnomalyScore >= anomalyCallbackThreshold {
			l.stats.incAnomaliesDetected()
		}
	}

	var matched []PatternMatch
	if boolOr(l.cfg.EnablePatternMatching, true) {
		history := l.History()
		matched = l.patternEngine.MatchAll(&e, history)
		l.patternEngine.TrainAll(&e)
		for range matched {
			l.stats.incPatternsMatched()
		}
	}

	var correlations []Correlation
	if boolOr(l.cfg.EnableCorrelation, true) {
		correlations = l.correlationEngine.Process(&e)
		for range correlations {
			l.stats.incCorrelationsFound()
		}
	}

	if boolOr(l.cfg.EnableAutoIncidents, true) {
		names := make([]string, len(matched))
		for i, m := range matched {
			names[i] = m.Name
		}
		if incident := l.incidentManager.EvaluateEvent(&e, correlations, names); incident != nil {
			e.IncidentID = incident.IncidentID
			l.stats.incIncidentsCreated()
		}
	}

	l.appendHistory(e)
	l.fireEventCallbacks(e)
	if e.AnomalyScore >= anomalyCallbackThreshold {
		l.fireAnomalyCallbacks(e)
	}
	l.writeSink(e, matched)
}

func (l *Logger) appendHistory(e Event) {
	l.historyMu.Lock()
	defer l.historyMu.Unlock()
	l.history = append(l.history, e)
	if len(l.history) > maxHistorySize {
		l.history = l.history[len(l.history)-maxHistorySize:]
	}
}

func (l *Logger) fireEventCallbacks(e Event) {
	l.callbackMu.Lock()
	var cbs []func(Event)
	cbs = append(cbs, l.eventCallbacks...)
	l.callbackMu.Unlock()
	for _, cb := range cbs {
		isolateCallback(cb, e)
	}
}

func (l *Logger) fireAnomalyCallbacks(e Event) {
	l.callbackMu.Lock()
	var cbs []func(Event)
	cbs = append(cbs, l.anomalyCallbacks...)
	l.callbackMu.Unlock()
	for _, cb := range cbs {
		isolateCallback(cb, e)
	}
}

// isolateCallback wraps a callback invocation so a panicking listener does
// not prevent later listeners from running nor poison the worker, per
// spec.md §5's callback-isolation requirement.
func isolateCallback(cb func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Errorf("callback panic: %v", r)
		}
	}()
	cb(e)
}

func (l *Logger) writeSink(e Event, matched []PatternMatch) {
	if l.logFile == nil && !boolOr(l.cfg.LogToConsole, true) {
		return
	}
	line := buildLogLine(e, matched, l.cfg.ServiceName, l.cfg.ServiceInstance)

	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	if l.logFile != nil {
		fmt.Fprintln(l.logFile, line)
	}
	if boolOr(l.cfg.LogToConsole, true) {
		fmt.Println(line)
	}
}

// buildLogLine renders the one-line-per-event file/console format from
// spec.md §6: "YYYY-MM-DD HH:MM:SS [SEVERITY] [service[:instance]]
// event_type - message {entities} [metrics] anomaly-marker?", optionally
// prefixed with "[PATTERN:<name>] " when a pattern matched.
func buildLogLine(e Event, matched []PatternMatch, cfgService, cfgInstance string) string {
	var b strings.Builder

	if len(matched) > 0 {
		fmt.Fprintf(&b, "[PATTERN:%s] ", matched[0].Name)
	}

	b.WriteString(e.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " [%s] ", e.Severity.String())

	service := e.ServiceName
	instance := e.ServiceInstance
	if service == "" {
		service = cfgService
	}
	if instance == "" {
		instance = cfgInstance
	}
	if service != "" {
		if instance != "" {
			fmt.Fprintf(&b, "[%s:%s] ", service, instance)
		} else {
			fmt.Fprintf(&b, "[%s] ", service)
		}
	}

	fmt.Fprintf(&b, "%s - %s", e.EventType, e.Message)

	if len(e.Entities) > 0 {
		b.WriteString(" " + formatOrderedStringMap(e.Entities, "{", "}"))
	}
	if len(e.Metrics) > 0 {
		b.WriteString(" " + formatOrderedMetricMap(e.Metrics))
	}
	if e.AnomalyScore >= anomalyCallbackThreshold {
		fmt.Fprintf(&b, " ⚠️ ANOMALY(%.3f)", e.AnomalyScore)
	}

	return b.String()
}

func formatOrderedStringMap(m map[string]string, open, close string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, m[k])
	}
	return open + strings.Join(parts, ",") + close
}

func formatOrderedMetricMap(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, m[k])
	}
	return "[" + strings.Join(parts, ",") + "]"
}
