// Package camera pulls captures and snapshots from the IP cameras and keeps
// the per-camera last-seen registry used to avoid forwarding the same
// capture twice.
package camera
