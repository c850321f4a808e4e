package agentlog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JiraConfig configures the Jira integration adapter.
type JiraConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	APIToken   string `yaml:"api_token"`
	ProjectKey string `yaml:"project_key"`
	Enabled    bool   `yaml:"enabled"`
}

// PagerDutyConfig configures the PagerDuty integration adapter.
type PagerDutyConfig struct {
	IntegrationKey string `yaml:"integration_key"`
	APIToken       string `yaml:"api_token"`
	Enabled        bool   `yaml:"enabled"`
}

// SlackConfig configures the Slack integration adapter.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Enabled    bool   `yaml:"enabled"`
}

// Config holds every tunable of the logger and its pipeline. Loaded via
// gopkg.in/yaml.v3, mirroring the teacher's config.LoadConfig shape, with
// defaulting applied after unmarshal the way internal/analyzer/rules.go's
// LoadRuleSet fills in zero-value fields rather than relying on struct
// tags for defaults.
type Config struct {
	ServiceName     string `yaml:"service_name"`
	ServiceInstance string `yaml:"service_instance"`
	Environment     string `yaml:"environment"`

	SamplingRate         float64 `yaml:"sampling_rate"`
	SampleAnomaliesAlways *bool  `yaml:"sample_anomalies_always"`

	AsyncQueueSize int  `yaml:"async_queue_size"`
	WorkerThreads  *int `yaml:"worker_threads"`

	EnableAnomalyDetection *bool `yaml:"enable_anomaly_detection"`
	EnablePatternMatching  *bool `yaml:"enable_pattern_matching"`
	EnableCorrelation      *bool `yaml:"enable_correlation"`
	EnableAutoIncidents    *bool `yaml:"enable_auto_incidents"`

	IncidentAnomalyThreshold     float64 `yaml:"incident_anomaly_threshold"`
	IncidentPatternThreshold     int     `yaml:"incident_pattern_threshold"`
	IncidentCorrelationThreshold int     `yaml:"incident_correlation_threshold"`

	CriticalThreshold float64 `yaml:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold"`

	DeduplicationWindowSeconds int `yaml:"deduplication_window_seconds"`

	AutoResolveStale        *bool `yaml:"auto_resolve_stale"`
	ResolutionTimeoutMinutes int   `yaml:"resolution_timeout_minutes"`

	StoragePath  string `yaml:"storage_path"`
	MaxStorageMB int    `yaml:"max_storage_mb"`

	LogFilePath  string `yaml:"log_file_path"`
	LogToConsole *bool  `yaml:"log_to_console"`

	Jira      JiraConfig      `yaml:"jira"`
	PagerDuty PagerDutyConfig `yaml:"pagerduty"`
	Slack     SlackConfig     `yaml:"slack"`
}

// DefaultConfig returns a Config with every default from spec.md §6
// applied, suitable for use directly or as a starting point before
// overriding individual fields.
func DefaultConfig() Config {
	c := Config{}
	applyConfigDefaults(&c)
	return c
}

// LoadConfig reads and parses a YAML config file, applying defaults to any
// field left at its zero value. Mirrors config.LoadConfig's read-then-
// unmarshal-then-default shape.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentlog: read config %q: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("agentlog: parse config %q: %w", path, err)
	}
	applyConfigDefaults(&c)
	return &c, nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func applyConfigDefaults(c *Config) {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	if c.SampleAnomaliesAlways == nil {
		c.SampleAnomaliesAlways = boolPtr(true)
	}
	if c.AsyncQueueSize == 0 {
		c.AsyncQueueSize = 8192
	}
	if c.WorkerThreads == nil {
		c.WorkerThreads = intPtr(2)
	}
	if c.EnableAnomalyDetection == nil {
		c.EnableAnomalyDetection = boolPtr(true)
	}
	if c.EnablePatternMatching == nil {
		c.EnablePatternMatching = boolPtr(true)
	}
	if c.EnableCorrelation == nil {
		c.EnableCorrelation = boolPtr(true)
	}
	if c.EnableAutoIncidents == nil {
		c.EnableAutoIncidents = boolPtr(true)
	}
	if c.IncidentAnomalyThreshold == 0 {
		c.IncidentAnomalyThreshold = 0.8
	}
	if c.IncidentPatternThreshold == 0 {
		c.IncidentPatternThreshold = 1
	}
	if c.IncidentCorrelationThreshold == 0 {
		c.IncidentCorrelationThreshold = 3
	}
	if c.CriticalThreshold == 0 {
		c.CriticalThreshold = 0.95
	}
	if c.HighThreshold == 0 {
		c.HighThreshold = 0.85
	}
	if c.MediumThreshold == 0 {
		c.MediumThreshold = 0.75
	}
	if c.DeduplicationWindowSeconds == 0 {
		c.DeduplicationWindowSeconds = 300
	}
	if c.AutoResolveStale == nil {
		c.AutoResolveStale = boolPtr(true)
	}
	if c.ResolutionTimeoutMinutes == 0 {
		c.ResolutionTimeoutMinutes = 15
	}
	if c.LogToConsole == nil {
		c.LogToConsole = boolPtr(true)
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
