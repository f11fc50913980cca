package remote

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lcgerke/lattice/internal/logging"
)

// Logger provides structured logging for remote/forge operations, routed
// through the shared zap sink (internal/logging) rather than a
// package-level log.Printf.
type Logger struct {
	enabled bool
	sugar   *zap.SugaredLogger
}

// NewLogger creates a logger gated by LATTICE_LOG/LATTICE_VERBOSE.
func NewLogger() *Logger {
	enabled := os.Getenv("LATTICE_LOG") != ""
	verbose := os.Getenv("LATTICE_VERBOSE") != ""
	sugar, err := logging.New(verbose)
	if err != nil || !enabled {
		sugar = logging.Noop()
	}
	return &Logger{enabled: enabled, sugar: sugar}
}

// LogOperation logs a remote operation with timing.
func (l *Logger) LogOperation(operation string, fn func() error) error {
	if !l.enabled {
		return fn()
	}

	start := time.Now()
	l.Infof("starting %s", operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.Errorf("failed %s (took %v): %v", operation, duration, err)
	} else {
		l.Infof("completed %s (took %v)", operation, duration)
	}

	return err
}

func (l *Logger) Info(msg string) { l.sugar.Info(msg) }

func (l *Logger) Infof(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

func (l *Logger) Error(msg string) { l.sugar.Error(msg) }

func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

func (l *Logger) Debug(msg string) { l.sugar.Debug(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// defaultLogger is the package-level logger used by the free functions
// below, as a convenience for callers that don't need their own Logger.
var defaultLogger = NewLogger()

// LogAPICall logs forge API calls for observability.
func LogAPICall(method, endpoint string, statusCode int, duration time.Duration) {
	if !defaultLogger.enabled {
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		defaultLogger.Infof("API %s %s -> %d (%v)", method, endpoint, statusCode, duration)
	} else if statusCode >= 400 {
		defaultLogger.Errorf("API %s %s -> %d (%v)", method, endpoint, statusCode, duration)
	}
}

// LogTokenResolution logs where the forge token was found.
func LogTokenResolution(source string) {
	if !defaultLogger.enabled {
		return
	}
	defaultLogger.Infof("forge token resolved from: %s", source)
}

// LogRetry logs retry attempts for failed operations.
func LogRetry(operation string, attempt int, maxAttempts int, err error) {
	if !defaultLogger.enabled {
		return
	}
	defaultLogger.Infof("retry %d/%d for %s: %v", attempt, maxAttempts, operation, err)
}

// MetricsCollector collects metrics about forge API usage.
type MetricsCollector struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	RateLimitHits   int
	TotalDuration   time.Duration
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (m *MetricsCollector) RecordCall(statusCode int, duration time.Duration) {
	m.TotalCalls++
	m.TotalDuration += duration

	if statusCode >= 200 && statusCode < 300 {
		m.SuccessfulCalls++
	} else {
		m.FailedCalls++
	}
	if statusCode == 429 {
		m.RateLimitHits++
	}
}

func (m *MetricsCollector) Report() string {
	if m.TotalCalls == 0 {
		return "no API calls made"
	}

	avgDuration := m.TotalDuration / time.Duration(m.TotalCalls)
	successRate := float64(m.SuccessfulCalls) / float64(m.TotalCalls) * 100

	return fmt.Sprintf(
		"API metrics:\n"+
			"  total calls: %d\n"+
			"  successful: %d (%.1f%%)\n"+
			"  failed: %d\n"+
			"  rate limit hits: %d\n"+
			"  avg duration: %v",
		m.TotalCalls, m.SuccessfulCalls, successRate, m.FailedCalls, m.RateLimitHits, avgDuration,
	)
}
