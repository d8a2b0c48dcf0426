// Package monitoring holds the redirectable diagnostic logger used by
// the stream-rate subsystems. Their per-frame drop and stats lines are
// useful on a live daemon; callers that find them noisy can redirect or
// mute them here.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, log.Printf by default.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the diagnostic logger. Passing nil installs a no-op
// logger, silencing stream diagnostics entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
