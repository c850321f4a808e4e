// Command agentlog-demo is a thin harness that initializes the library
// against a config file (or defaults), emits a small synthetic workload,
// and prints the resulting stats. Grounded on cmd/threatgraph/main.go's
// config-discovery and signal-driven shutdown shape.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"agentlog"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("warning: config file not found at %s, using defaults", configArg)
	}

	if _, err := os.Stat("agentlog.yml"); err == nil {
		return "agentlog.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "agentlog.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func loadConfig(path string) agentlog.Config {
	if path == "" {
		return agentlog.DefaultConfig()
	}
	cfg, err := agentlog.LoadConfig(path)
	if err != nil {
		log.Printf("warning: failed to load config from %s: %v; using defaults", path, err)
		return agentlog.DefaultConfig()
	}
	return *cfg
}

func runSyntheticWorkload(l *agentlog.Logger, rounds int) {
	for i := 0; i < 100; i++ {
		l.Observe("latency").
			Metric("latency_ms", 50+rand.Float64()*10-5).
			Service("checkout", "checkout-1").
			Emit()
	}

	l.Event("database.slow").Message("query exceeded threshold").Emit()
	l.Event("api.timeout").Message("upstream timed out").Emit()
	l.Event("user.error").Message("checkout failed").Emit()

	for i := 0; i < 6; i++ {
		l.Event("auth.failed").
			Entity("user", "u1").
			Message("invalid credentials").
			Emit()
		time.Sleep(10 * time.Millisecond)
	}

	l.Observe("latency").
		Metric("latency_ms", 500).
		Service("checkout", "checkout-1").
		Emit()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	rounds := flag.Int("rounds", 1, "number of synthetic workload rounds")
	flag.Parse()

	path := findConfigFile(*configPath)
	cfg := loadConfig(path)

	l, err := agentlog.Init(cfg)
	if err != nil {
		log.Fatalf("failed to initialize agentlog: %v", err)
	}

	l.Incidents().OnIncident(func(i *agentlog.Incident) {
		log.Printf("incident %s: %s (%s)", i.IncidentID, i.Title, i.Severity)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for i := 0; i < *rounds; i++ {
			runSyntheticWorkload(l, i)
		}
		close(done)
	}()

	select {
	case <-sigCh:
		log.Println("interrupted")
	case <-done:
	}

	if err := agentlog.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	stats := l.Stats()
	fmt.Printf("events_total=%d events_dropped=%d anomalies_detected=%d patterns_matched=%d correlations_found=%d incidents_created=%d\n",
		stats.EventsTotal, stats.EventsDropped, stats.AnomaliesDetected, stats.PatternsMatched, stats.CorrelationsFound, stats.IncidentsCreated)
}
