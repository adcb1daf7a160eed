// Package runner owns a conversation end to end: it appends user input,
// solicits completions through the protocol adapter, drives the tool chain
// as a bounded iterative loop, and compacts the history when it grows past
// the configured ceiling.
package runner
