// Package policy implements the alarm policy: the persisted arm flag, the
// deferred arm, the panic window with its countdown and capture tick, and the
// button actions.
//
// An Engine serializes every transition behind one mutex. Timers are
// time.AfterFunc handles tagged with a generation, so a callback that fires
// after being superseded does nothing. Chat and camera calls never run under
// the lock; they are dispatched to tracked goroutines and their failures are
// logged and counted without touching the state.
package policy
