// Package alarm contains the core domain types of the armed/disarmed policy.
//
// It defines Actor (who changed the state) and State (a snapshot of the arm
// flag, the panic window and a pending deferred arm) with Clone helpers to
// avoid leaking internal references.
package alarm
