// Package mqtt subscribes to the sensor bus and feeds classified events to the policy engine.
package mqtt
