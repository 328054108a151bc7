// Package bootstrap implements the launch sequence for the bot:
// upgrade the package installer, install dependencies from the manifest,
// install the automation runtime's browser binary, start the main program.
//
// Only the dependency installation is fatal; the browser installation is
// recoverable and the installer upgrade is never inspected. The asymmetry
// is deliberate and mirrors the historical launcher.
package bootstrap
