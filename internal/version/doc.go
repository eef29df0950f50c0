// Package version exposes build metadata of alarm-bridge and alarm-ctl.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
package version
