// Package logging is the process-wide diagnostic sink. Command output goes
// to stdout in the handlers; everything diagnostic goes through here.
package logging

import (
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	mu         sync.Mutex
	verbose    bool
	verboseSet bool
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// SetVerbose configures the verbosity for this invocation. The first call
// wins; the dispatcher calls it exactly once before any handler runs.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()

	if verboseSet {
		return
	}
	verbose = v
	verboseSet = true

	if v {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// IsVerbose reports whether verbose diagnostics were requested.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// Reset clears the verbosity state so tests can exercise both settings.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	verbose = false
	verboseSet = false
	log.SetLevel(log.InfoLevel)
}

// Verbosef logs a message shown only when verbose logging is enabled.
func Verbosef(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Infof logs a progress notice.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs a non-fatal problem.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs a failure.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}
