// Package debug holds process-wide switches for verbose tracing that is
// too noisy for the structured log.
package debug

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Enabled turns on general debug traces (-debug).
var Enabled bool

// Detections turns on one trace line per frame per camera (-debug-detections).
var Detections bool

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects traces. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// Log prints a trace if Enabled is set
func Log(format string, args ...interface{}) {
	if Enabled {
		write(format, args...)
	}
}

// DetectLog prints a detection trace if Detections is set
func DetectLog(format string, args ...interface{}) {
	if Detections {
		write(format, args...)
	}
}

// write stamps the line with wall-clock milliseconds so traces from
// concurrent sources can be ordered.
func write(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s %s", time.Now().Format("15:04:05.000"), line)
}
