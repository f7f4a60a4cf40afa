package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := startSpinner(context.Background(), &buf, "Scanning /proj...")
	time.Sleep(3 * spinnerInterval)
	s.stop()
	s.stop()

	out := buf.String()
	if !strings.Contains(out, "Scanning /proj...") {
		t.Errorf("status line missing message: %q", out)
	}
	clear := "\r" + strings.Repeat(" ", len("Scanning /proj...")+4) + "\r"
	if !strings.HasSuffix(out, clear) {
		t.Errorf("status line not cleared: %q", out)
	}
}

func TestSpinnerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := startSpinner(ctx, io.Discard, "Refreshing folders...")
	cancel()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner kept running after cancellation")
	}
	s.stop()
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, log.InfoLevel)
	ctx := context.Background()

	ran := false
	if err := c.withSpinner(ctx, "Scanning...", "Scan failed", func() error {
		ran = true
		return nil
	}); err != nil || !ran {
		t.Fatalf("withSpinner() = %v, ran = %v", err, ran)
	}

	scanErr := errors.New("permission denied")
	if err := c.withSpinner(ctx, "Scanning...", "Scan failed", func() error {
		return scanErr
	}); !errors.Is(err, scanErr) {
		t.Errorf("withSpinner() = %v, want the scan error", err)
	}
}
