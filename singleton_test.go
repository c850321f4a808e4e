package agentlog

import "testing"

func TestInitInstallsTheDefaultAndShutdownSucceeds(t *testing.T) {
	ResetDefault()
	defer ResetDefault()

	if Default() != nil {
		t.Fatal("expected no default logger before Init")
	}

	cfg := DefaultConfig()
	cfg.LogToConsole = boolPtr(false)
	l, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Default() != l {
		t.Error("Default() should return the instance installed by Init")
	}

	if err := Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestInitTwiceWithoutShutdownIsIdempotent(t *testing.T) {
	ResetDefault()
	defer ResetDefault()

	cfg := DefaultConfig()
	cfg.LogToConsole = boolPtr(false)
	first, err := Init(cfg)
	if err != nil {
		t.Fatalf("first Init: %v", err)
	}
	defer first.Shutdown()

	second, err := Init(cfg)
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if second != first {
		t.Error("a second Init before Shutdown should return the already-installed instance")
	}
}

func TestShutdownWithNoDefaultIsNoOp(t *testing.T) {
	ResetDefault()
	defer ResetDefault()
	if err := Shutdown(); err != nil {
		t.Errorf("Shutdown with no default installed returned an error: %v", err)
	}
}

func TestNewEventBeforeInitDegradesGracefully(t *testing.T) {
	ResetDefault()
	defer ResetDefault()
	// Must not panic: routes through an uninitialized Logger's
	// dump-to-stderr path.
	NewEvent("pre.init").Message("no default logger yet").Emit()
}

func TestObserveMetricUsesMetricObservedEventType(t *testing.T) {
	ResetDefault()
	defer ResetDefault()

	cfg := DefaultConfig()
	cfg.LogToConsole = boolPtr(false)
	l, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer l.Shutdown()

	e := ObserveMetric("queue_depth").Metric("queue_depth", 5).Build()
	if e.EventType != "metric.observed" {
		t.Errorf("EventType = %q, want metric.observed", e.EventType)
	}
}
