package debug

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// saveState snapshots the package-level switches and restores them when
// the test ends, since they are process-global.
func saveState(t *testing.T) {
	t.Helper()
	savedEnabled, savedVerbose, savedQuiet := enabled, verboseMode, quietMode
	t.Cleanup(func() {
		enabled, verboseMode, quietMode = savedEnabled, savedVerbose, savedQuiet
	})
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stderr
	os.Stderr = w
	fn()
	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestEnabled(t *testing.T) {
	saveState(t)

	enabled = false
	verboseMode = false
	if Enabled() {
		t.Error("Enabled() = true with both switches off")
	}

	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled() = false with verbose on")
	}

	SetVerbose(false)
	enabled = true
	if !Enabled() {
		t.Error("Enabled() = false with env switch on")
	}
}

func TestLogfWritesStderrOnlyWhenEnabled(t *testing.T) {
	saveState(t)

	enabled = false
	verboseMode = false
	out := captureStderr(t, func() {
		Logf("resolved due date for %s\n", "TWR-7")
	})
	if out != "" {
		t.Errorf("Logf wrote %q while disabled", out)
	}

	SetVerbose(true)
	out = captureStderr(t, func() {
		Logf("resolved due date for %s\n", "TWR-7")
	})
	if !strings.Contains(out, "TWR-7") {
		t.Errorf("Logf output %q missing expected text", out)
	}
}

func TestPrintfSilentWhenDisabled(t *testing.T) {
	saveState(t)

	enabled = false
	verboseMode = false
	out := captureStdout(t, func() {
		Printf("cache warm took %dms\n", 12)
	})
	if out != "" {
		t.Errorf("Printf wrote %q while disabled", out)
	}

	enabled = true
	out = captureStdout(t, func() {
		Printf("cache warm took %dms\n", 12)
	})
	if !strings.Contains(out, "12ms") {
		t.Errorf("Printf output %q missing expected text", out)
	}
}

func TestQuietSuppressesNormalOutput(t *testing.T) {
	saveState(t)

	SetQuiet(false)
	if IsQuiet() {
		t.Fatal("IsQuiet() = true after SetQuiet(false)")
	}
	out := captureStdout(t, func() {
		PrintNormal("closed %d defects\n", 3)
		PrintlnNormal("done")
	})
	if !strings.Contains(out, "closed 3 defects") || !strings.Contains(out, "done") {
		t.Errorf("normal output %q missing expected lines", out)
	}

	SetQuiet(true)
	if !IsQuiet() {
		t.Fatal("IsQuiet() = false after SetQuiet(true)")
	}
	out = captureStdout(t, func() {
		PrintNormal("closed %d defects\n", 3)
		PrintlnNormal("done")
	})
	if out != "" {
		t.Errorf("quiet mode still wrote %q", out)
	}
}

func TestLogEventAppendsToProjectLog(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".punchlist"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWD) })
	t.Setenv("PUNCH_ACTOR", "rita")

	LogEvent("DEFECT_CLOSED", "TWR-12", "closed after reinspection")
	LogEvent("DEFECT_REOPENED", "", "failed reinspection")

	data, err := os.ReadFile(filepath.Join(dir, ".punchlist", "events.log"))
	if err != nil {
		t.Fatalf("read events.log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 event lines, got %d: %q", len(lines), string(data))
	}

	first := strings.Split(lines[0], "|")
	if len(first) != 5 {
		t.Fatalf("expected 5 pipe-delimited fields, got %d: %q", len(first), lines[0])
	}
	if first[1] != "DEFECT_CLOSED" || first[2] != "TWR-12" || first[3] != "rita" || first[4] != "closed after reinspection" {
		t.Errorf("unexpected event fields: %q", lines[0])
	}

	// A missing defect number is recorded as "none".
	second := strings.Split(lines[1], "|")
	if second[2] != "none" {
		t.Errorf("expected defect field \"none\", got %q", second[2])
	}
}
