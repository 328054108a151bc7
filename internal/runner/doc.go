// Package runner abstracts blocking subprocess execution.
//
// Every bootstrap step is a subprocess whose exit status drives control
// flow, so the Runner interface reports non-zero exits as data rather than
// errors. Services accept a Runner so tests can substitute scripted results.
package runner
