// Package state persists the arm flag as a marker file.
//
// The presence of the file means "armed"; its content is the arm timestamp,
// kept for operators only. MarkerRepository implements the Repository
// interface the policy engine depends on.
package state
