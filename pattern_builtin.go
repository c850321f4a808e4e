package agentlog

import (
	"regexp"
	"time"
)

var exceptionDetectedRegex = regexp.MustCompile(`Exception|Error|Traceback|at \w+\.\w+\(`)

// registerBuiltinPatterns wires up the four patterns spec.md §4.4 names as
// registered on init: cascading_failure, auth_failure_burst, retry_storm,
// exception_detected.
func registerBuiltinPatterns(engine *PatternEngine) {
	engine.Register(NewSequentialPattern(
		"cascading_failure",
		"database.slow followed by api.timeout followed by user.error",
		[]SequentialStep{
			{EventType: "database.slow", MaxTimeSincePrev: 10 * time.Second},
			{EventType: "api.timeout", MaxTimeSincePrev: 10 * time.Second},
			{EventType: "user.error", MaxTimeSincePrev: 10 * time.Second},
		},
	))

	engine.Register(NewFrequencyPattern(
		"auth_failure_burst",
		"repeated auth.failed for the same entity, 5 in 60s",
		"auth.failed", FrequencyRepeated, 5, 60*time.Second, "user",
	))

	engine.Register(NewFrequencyPattern(
		"retry_storm",
		"burst of api.retry, 10 in 30s",
		"api.retry", FrequencyBurst, 10, 30*time.Second, "",
	))

	engine.Register(NewRegexPattern(
		"exception_detected",
		"message looks like an exception or stack trace",
		RegexFieldMessage, "", exceptionDetectedRegex,
	))
}
