// Package monitoring carries the toolkit-wide diagnostic logger shared
// by the daemon, the CLIs and the library packages.
package monitoring

import "log"

// Logf emits a diagnostic line. It starts out as log.Printf; callers
// that need a different sink (or silence, in tests) swap it through
// SetLogger rather than assigning the variable directly.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger installs f as the sink for Logf. A nil f mutes logging.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
