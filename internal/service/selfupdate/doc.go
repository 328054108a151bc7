// Package selfupdate downloads and applies launcher updates from a
// configured folder URL.
//
// It validates local files against checksums from a remote manifest,
// downloads required artifacts to a temporary directory and applies them
// atomically. A marker file guards against concurrent update runs.
package selfupdate
