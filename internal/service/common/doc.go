// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the control API with timeouts,
// detection of the current system actor (hostname/username) for the audit
// trail, and a single-instance guard for the bridge process.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
