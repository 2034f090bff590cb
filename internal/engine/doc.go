// Package engine runs transitions and commits their outcomes.
//
// The engine does not choose which transition to run; callers do. Given a
// Call, a Runner:
//
//  1. invokes the transition with a copy of the current state
//  2. turns the result (or the error, or a panic) into an ir.Outcome
//  3. commits the outcome through the store
//
// A failing transition is not an error of Fire: the failure is recorded in
// the errors log and the status is left alone. Fire only returns errors
// that prevented the outcome from being committed.
//
// Event and error records carry wall-clock timestamps from a Clock. The
// events log itself is ordered by commit.
package engine
