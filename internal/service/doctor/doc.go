// Package doctor probes the host environment before a bootstrap run:
// interpreter presence and version, installer and automation runtime
// modules, manifest readability, entrypoint presence and concurrent
// launcher instances.
package doctor
