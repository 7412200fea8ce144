// Package logger provides the printf-style logging interface used across roza
// and its text, JSON and test backends.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Logger is implemented by every backend.
type Logger interface {
	// Info logs an informational message (e.g., "next event: SEHRI at ...").
	Info(format string, args ...interface{})

	// Warning logs a recoverable problem (e.g., "playback tier local failed").
	Warning(format string, args ...interface{})

	// Error logs a failure (e.g., "tick failed: calculation failed").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger. Safe to call more than once.
	Close() error
}

// Format names accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w in the given format. Unknown formats
// fall back to text.
func New(w io.Writer, format string) Logger {
	if strings.EqualFold(format, FormatJSON) {
		return NewZerologLogger(w)
	}
	return NewStandardLogger(log.New(w, "", log.LstdFlags))
}

// StandardLogger wraps a stdlib *log.Logger with level prefixes.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger creates a logger that wraps the given *log.Logger.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l}
}

func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

func (s *StandardLogger) Close() error {
	return nil
}

// NopLogger discards all messages.
type NopLogger struct{}

func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records every call for verification in tests. It is safe for
// concurrent use; read the slices only after the code under test is done.
type MockLogger struct {
	mu           sync.Mutex
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = append(m.InfoCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarningCalls = append(m.WarningCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalls = append(m.ErrorCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

// Count returns the number of recorded calls at all levels.
func (m *MockLogger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.InfoCalls) + len(m.WarningCalls) + len(m.ErrorCalls)
}

var _ Logger = (*MockLogger)(nil)

// stdWriter turns Logger into an io.Writer so it can back a *log.Logger.
type stdWriter struct {
	l Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.l.Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// ToStdLogger exposes l as a *log.Logger for libraries that want one.
// Every line is logged at info level.
func ToStdLogger(l Logger) *log.Logger {
	return log.New(stdWriter{l: l}, "", 0)
}
