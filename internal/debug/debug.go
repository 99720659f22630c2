// Package debug holds the process-wide output switches. Debug output
// is on when PUNCH_DEBUG is set in the environment or --verbose was
// passed; quiet mode suppresses informational output.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("PUNCH_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex
)

// Enabled reports whether debug output should be written.
func Enabled() bool {
	return enabled || verboseMode
}

func SetVerbose(verbose bool) {
	verboseMode = verbose
}

func SetQuiet(quiet bool) {
	quietMode = quiet
}

func IsQuiet() bool {
	return quietMode
}

// Logf writes debug output to stderr.
func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Printf writes debug output to stdout.
func Printf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Printf(format, args...)
	}
}

// PrintNormal writes informational output, suppressed in quiet mode.
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}

// PrintlnNormal writes an informational line, suppressed in quiet mode.
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Println(args...)
	}
}

// LogEvent appends a pipe-delimited record to .punchlist/events.log in
// the enclosing project: TIMESTAMP|EVENT_CODE|DEFECT_NUMBER|ACTOR|DETAILS.
// Outside a project, or on any write failure, the event is dropped so
// logging never interrupts the operation itself.
func LogEvent(eventCode, defectNumber, details string) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return
	}
	logPath := filepath.Join(projectRoot, ".punchlist", "events.log")

	if defectNumber == "" {
		defectNumber = "none"
	}
	actor := os.Getenv("PUNCH_ACTOR")
	if actor == "" {
		actor = os.Getenv("USER")
		if actor == "" {
			actor = "unknown"
		}
	}

	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n",
		time.Now().UTC().Format(time.RFC3339), eventCode, defectNumber, actor, details)

	logMutex.Lock()
	defer logMutex.Unlock()

	os.MkdirAll(filepath.Dir(logPath), 0755)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer file.Close()
	file.WriteString(entry)
}

// findProjectRoot walks up from the working directory to the nearest
// directory containing .punchlist/.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".punchlist")); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a punchlist project")
		}
		dir = parent
	}
}
