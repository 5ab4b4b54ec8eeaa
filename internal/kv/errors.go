package kv

import "errors"

var (
	// ErrNotFound is returned for a missing key, and for a pattern delete
	// that matched nothing.
	ErrNotFound = errors.New("key not found")

	// ErrWriteFailed wraps any failure to encode, write, delete or commit.
	ErrWriteFailed = errors.New("write failed")

	// ErrUnknownCommand is returned by Dispatch for an unrecognised command.
	ErrUnknownCommand = errors.New("unknown command")
)
