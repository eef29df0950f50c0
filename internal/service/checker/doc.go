// Package checker implements the status and watch commands of alarm-ctl.
package checker
