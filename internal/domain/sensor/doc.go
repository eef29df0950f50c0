// Package sensor defines the typed events produced from RF device codes, the
// static action table that maps codes to event templates, and the camera
// records the bridge polls for captures.
package sensor
