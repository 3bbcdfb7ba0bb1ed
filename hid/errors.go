package hid

import "errors"

var (
	// ErrInvalidCategory indicates a category tag outside the declared range.
	ErrInvalidCategory = errors.New("hid: invalid category")

	// ErrInvalidBucketCount indicates a bucket count that is not a power of two >= 2.
	ErrInvalidBucketCount = errors.New("hid: bucket count must be a power of two >= 2")

	// ErrInvalidReserved indicates a reserved range that leaves no mintable index.
	ErrInvalidReserved = errors.New("hid: reserved range covers the whole index space")

	// ErrUnknownCategory indicates an operation on a category that is not open.
	ErrUnknownCategory = errors.New("hid: category not open")

	// ErrUnknownHandle indicates a handle that does not resolve to a live entry.
	ErrUnknownHandle = errors.New("hid: unknown handle")

	// ErrNoHandlesAvailable indicates every index of a category is in use.
	ErrNoHandlesAvailable = errors.New("hid: no handles available")

	// ErrReleaseFailed indicates a release callback failed; the entry was kept.
	ErrReleaseFailed = errors.New("hid: release failed")
)
