// Package memory implements the adapter contract with in-process maps.
// Intended for tests and examples; data does not survive a restart.
package memory
