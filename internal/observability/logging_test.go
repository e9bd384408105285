package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf)
	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below level, got %q", buf.String())
	}
	l.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected message to be logged, got %q", buf.String())
	}
}

func TestWithFieldsMerges(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG, &buf).WithField("run", "e1").WithField("stage", "read")
	l.Info("hello")
	out := buf.String()
	if !strings.Contains(out, "run=e1") || !strings.Contains(out, "stage=read") {
		t.Fatalf("expected both fields present, got %q", out)
	}
}

func TestStageLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG, &buf)
	err := l.Stage("write output", func() error { return errBoom })
	if err != errBoom {
		t.Fatalf("expected Stage to return the underlying error, got %v", err)
	}
	if !strings.Contains(buf.String(), "stage failed") {
		t.Fatalf("expected failure log entry, got %q", buf.String())
	}
}

var errBoom = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if ParseLevel("nonsense") != INFO {
		t.Fatalf("expected unknown level to default to INFO")
	}
	if ParseLevel("debug") != DEBUG {
		t.Fatalf("expected lowercase debug to parse")
	}
}
