package agentlog

import "sync"

// The package exposes a resettable process-wide handle for ergonomic use,
// while NewLogger and the component constructors remain usable directly so tests can
// build fully isolated instances (spec.md §9's singleton design note).
var (
	defaultMu sync.Mutex
	defaultLogger *Logger
)

// Init constructs, starts, and installs the process-wide default Logger.
// A second call without an intervening Shutdown is a no-op with a stderr
// notice, matching the coordinator's own idempotent-with-warning Start.
func Init(cfg Config) (*Logger, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger != nil && defaultLogger.running() {
		return defaultLogger, defaultLogger.Start()
	}

	l := NewLogger(cfg)
	if err := l.Start(); err != nil {
		return nil, err
	}
	defaultLogger = l
	return l, nil
}

// Shutdown stops the process-wide default Logger, if any.
func Shutdown() error {
	defaultMu.Lock()
	l := defaultLogger
	defaultMu.Unlock()
	if l == nil {
		return nil
	}
	return l.Shutdown()
}

// Default returns the process-wide Logger installed by Init, or nil if
// Init has not been called.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

// ResetDefault clears the process-wide handle without shutting down the
// previous instance, so tests can install a fresh isolated Logger via
// Init without interference from a prior test's state.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = nil
}

// NewEvent starts a fluent builder against the process-wide default
// Logger. Emitting before Init degrades to a stderr dump rather than
// panicking (spec.md §7's uninitialized-emission error kind).
func NewEvent(eventType string) *EventBuilder {
	l := Default()
	if l == nil {
		l = uninitializedLogger()
	}
	return l.Event(eventType)
}

// ObserveMetric is sugar for NewEvent("metric.observed") against the
// process-wide default Logger.
func ObserveMetric(metricName string) *EventBuilder {
	l := Default()
	if l == nil {
		l = uninitializedLogger()
	}
	return l.Observe(metricName)
}

// uninitializedLogger returns a never-started Logger purely so a builder
// created before Init has somewhere to route Emit's degrade-to-stderr
// path without a nil-pointer check on every call.
func uninitializedLogger() *Logger {
	return NewLogger(DefaultConfig())
}
