// Package obslog is the library's own operational logger: diagnostics
// about the pipeline itself (non-finite metrics dropped by the builder,
// panicking callbacks), never the analyzed event stream. Grounded on
// internal/logger/logger.go's global-singleton leveled-sink shape.
package obslog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level is the operational logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

type sink struct {
	level   Level
	logger  *log.Logger
	enabled bool
}

var global *sink = &sink{enabled: false}

// Init (re)configures the operational sink. Safe to call more than once;
// the newest configuration wins, matching the teacher's global-overwrite
// shape rather than the coordinator's stricter init-once discipline.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		global = &sink{enabled: false}
		return nil
	}

	level := parseLevel(levelStr)
	var writers []io.Writer

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("obslog: create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("obslog: open log file: %w", err)
		}
		writers = append(writers, f)
	}

	if console || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	global = &sink{
		level:   level,
		logger:  log.New(io.MultiWriter(writers...), "", 0),
		enabled: true,
	}
	return nil
}

func parseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

func format(level Level, f string, args ...interface{}) string {
	ts := time.Now().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("[%s] [%s] %s", ts, level, fmt.Sprintf(f, args...))
}

// Debugf logs a debug-level diagnostic.
func Debugf(f string, args ...interface{}) { emit(Debug, f, args...) }

// Infof logs an info-level diagnostic.
func Infof(f string, args ...interface{}) { emit(Info, f, args...) }

// Warnf logs a warning-level diagnostic.
func Warnf(f string, args ...interface{}) { emit(Warn, f, args...) }

// Errorf logs an error-level diagnostic.
func Errorf(f string, args ...interface{}) { emit(Error, f, args...) }

func emit(level Level, f string, args ...interface{}) {
	if global == nil || !global.enabled || global.level > level {
		return
	}
	global.logger.Println(format(level, f, args...))
}
