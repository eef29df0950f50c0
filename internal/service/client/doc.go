// Package client implements the arm and disarm commands of alarm-ctl.
//
// It connects to the bridge's control API and pushes the desired state,
// optionally retrying until the bridge confirms it.
package client
