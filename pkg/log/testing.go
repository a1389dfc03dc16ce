// Testing helpers that capture structured log output in memory.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// lockedBuffer is a bytes.Buffer safe for concurrent writers and readers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// TestLogger is a JSON logger that keeps everything it writes for later
// inspection. It also implements LoggerProvider so it can be installed with
// SetProvider.
type TestLogger struct {
	Logger
	provider *Provider
	buffer   *lockedBuffer
}

// NewTestLogger creates a TestLogger that records messages at level and above.
//
//	testLogger := log.NewTestLogger(log.LevelDebug)
//	log.SetProvider(testLogger)
//	// ... code under test ...
//	if !testLogger.ContainsMessage("Model trained") { ... }
func NewTestLogger(level Level) *TestLogger {
	buf := &lockedBuffer{}
	p, _ := NewProvider(Config{Level: "debug", Format: "json", Output: buf})
	p.SetLevel(level)
	return &TestLogger{Logger: p.GetLogger(), provider: p, buffer: buf}
}

// GetLogger implements LoggerProvider.GetLogger.
func (t *TestLogger) GetLogger() Logger {
	return t.provider.GetLogger()
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (t *TestLogger) GetLoggerWithName(name string) Logger {
	return t.provider.GetLoggerWithName(name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (t *TestLogger) SetLevel(level Level) {
	t.provider.SetLevel(level)
	t.Logger = t.provider.GetLogger()
}

// String returns the raw captured output.
func (t *TestLogger) String() string {
	return t.buffer.String()
}

// GetLogEntries parses the captured output, one JSON object per line.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any entry has exactly this message.
func (t *TestLogger) ContainsMessage(message string) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry["message"] == message {
			return true
		}
	}
	return false
}

// ContainsField reports whether any entry has key set to value. JSON numbers
// decode as float64, so numeric values must be passed as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops all captured output.
func (t *TestLogger) Clear() {
	t.buffer.Reset()
}
