// Package alarm implements the gRPC control API of the bridge.
//
// The service is described by a hand-written descriptor over protobuf
// well-known types, so no generated code is needed: GetAlarmState takes an
// Empty, SetAlarmState a BoolValue, and both answer with the state as a
// Struct. The caller identity travels in call metadata.
package alarm
