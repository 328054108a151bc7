// Package config defines launcher settings used by all subcommands and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the interpreter, manifest, browser, entrypoint and
// the optional update folder URL.
package config
