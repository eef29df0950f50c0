// Package rest serves the HTTP API of the bridge: signed slash commands under
// /command, the password-gated wall panel, metrics and a health probe.
package rest
