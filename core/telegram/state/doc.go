// Package state keeps short-lived conversation states in process memory.
// States are keyed by an int64 chosen by the caller, usually the chat id,
// and are lost on restart.
package state
