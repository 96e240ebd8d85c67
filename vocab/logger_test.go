package vocab

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &ConsoleLogger{
		Prefix: "vocab",
		Out:    &buf,
		Now:    func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC) },
	}

	logger.Debugf("hidden %d", 1)
	logger.Infof("export %s done", "exp-1")
	logger.Errorf("failed")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("expected debug to be suppressed, got %q", got)
	}
	if !strings.Contains(got, "2024-02-03T04:05:06Z [INFO] vocab: export exp-1 done\n") {
		t.Fatalf("unexpected info line %q", got)
	}
	if !strings.Contains(got, "[ERROR] vocab: failed") {
		t.Fatalf("unexpected error line %q", got)
	}

	logger.Debug = true
	logger.Debugf("shown")
	if !strings.Contains(buf.String(), "[DEBUG] vocab: shown") {
		t.Fatalf("expected debug line")
	}
}
