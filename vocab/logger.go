package vocab

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// ConsoleLogger writes leveled log lines to an output stream.
type ConsoleLogger struct {
	Prefix string
	Debug  bool
	Out    io.Writer
	Now    func() time.Time

	mu sync.Mutex
}

// NewConsoleLogger creates a logger writing to stderr.
func NewConsoleLogger(prefix string, debug bool) *ConsoleLogger {
	return &ConsoleLogger{Prefix: prefix, Debug: debug, Out: os.Stderr, Now: time.Now}
}

func (l *ConsoleLogger) Debugf(format string, args ...any) {
	if l == nil || !l.Debug {
		return
	}
	l.write("DEBUG", format, args...)
}

func (l *ConsoleLogger) Infof(format string, args ...any) {
	l.write("INFO", format, args...)
}

func (l *ConsoleLogger) Errorf(format string, args ...any) {
	l.write("ERROR", format, args...)
}

func (l *ConsoleLogger) write(level, format string, args ...any) {
	if l == nil {
		return
	}
	out := l.Out
	if out == nil {
		out = os.Stderr
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(out, "%s [%s] %s: %s\n", now().Format(time.RFC3339), level, l.Prefix, fmt.Sprintf(format, args...))
}
