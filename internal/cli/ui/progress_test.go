package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{
		Message:  "Discovering types",
		NoColor:  true,
		Interval: 10 * time.Millisecond,
	})

	spinner.Start()
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()

	output := buf.String()
	if !strings.Contains(output, "Discovering types") {
		t.Errorf("Expected spinner to show its message, got: %q", output)
	}
	if !strings.HasSuffix(output, "\r\033[K") {
		t.Error("Expected spinner to clear the line on stop")
	}

	// Stopping twice is a no-op
	spinner.Stop()
}

func TestSpinnerSuccess(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{Message: "Building", NoColor: true})

	spinner.Start()
	spinner.Success("Metamodel built")

	if !strings.Contains(buf.String(), "✓ Metamodel built") {
		t.Errorf("Expected success message, got: %q", buf.String())
	}
}

func TestSpinnerError(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{Message: "Building", NoColor: true})

	spinner.Start()
	spinner.Error("Build failed")

	if !strings.Contains(buf.String(), "❌ Build failed") {
		t.Errorf("Expected error message, got: %q", buf.String())
	}
}

func TestSpinnerNoColor(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{
		Message:  "Testing",
		NoColor:  true,
		Interval: 10 * time.Millisecond,
	})

	spinner.Start()
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()

	output := strings.ReplaceAll(buf.String(), "\r\033[K", "")
	if strings.Contains(output, "\x1b[") {
		t.Errorf("Expected no color codes with NoColor=true, got: %q", output)
	}
}

func TestSpinnerUpdateMessage(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{
		Message:  "Initial message",
		NoColor:  true,
		Interval: 10 * time.Millisecond,
	})

	spinner.Start()
	spinner.UpdateMessage("Updated message")
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()

	if !strings.Contains(buf.String(), "Updated message") {
		t.Errorf("Expected updated message in output, got: %q", buf.String())
	}
}

func TestSpinnerWaveReporter(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{NoColor: true})

	report := spinner.WaveReporter("Discovering types")
	report(1, 2)
	report(2, 3)

	spinner.mu.Lock()
	msg := spinner.message
	spinner.mu.Unlock()

	if msg != "Discovering types (wave 2, 5 types)" {
		t.Errorf("WaveReporter message = %q", msg)
	}
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	called := false

	err := WithSpinner(&buf, "Building metamodel", true, func(s *Spinner) error {
		called = true
		s.UpdateMessage("Building metamodel (wave 1, 2 types)")
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if !called {
		t.Error("Expected function to be called")
	}
	if !strings.Contains(buf.String(), "✓ Building metamodel") {
		t.Errorf("Expected success line in output, got: %q", buf.String())
	}
}

func TestWithSpinnerError(t *testing.T) {
	var buf bytes.Buffer
	testErr := errors.New("test error")

	err := WithSpinner(&buf, "Building metamodel", true, func(*Spinner) error {
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("Expected error to be returned, got: %v", err)
	}
	if !strings.Contains(buf.String(), "❌ Building metamodel failed") {
		t.Errorf("Expected failure line in output, got: %q", buf.String())
	}
}
