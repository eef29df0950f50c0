// Package bridge runs the alarm bridge process: it subscribes to the sensor
// bus, applies the alarm policy and serves the HTTP and gRPC APIs.
package bridge
