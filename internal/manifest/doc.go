// Package manifest parses the dependency manifest consumed by the install
// step (one requirement specifier per line, pip requirements convention).
//
// The launcher only inspects the manifest to report what will be installed;
// the installer tool remains the authority on its interpretation.
package manifest
