// Package errors provides the structured error type shared by every pmdakit
// package. Each failure carries a machine-readable ErrorCode so callers can
// tell a rejected filter from a missing attribute or a misbehaving server
// without string matching.
package errors
