// Package hid implements the handle registry: small signed integer handles
// that stand in for in-memory objects across the library surface.
//
// # Overview
//
// Every object a caller can hold (a file, a dataset, an attribute, a region
// reference, ...) is registered under a Category and addressed by a Handle.
// Dependent code never holds slot internals. It registers objects, resolves
// handles with LookupTyped, and manages lifetimes with IncRef/DecRef/Remove.
//
// # Handle Layout
//
// A Handle is an int32:
//
//	 31 | 30 ........ 24 | 23 ..................... 0
//	sign|  category tag  |        slot index
//
// Negative handles are always invalid and decode to BadCategory. Tag 0 is not a
// category, so the zero Handle is invalid too. Decoding never consults storage:
//
//	h, _ := reg.Register(hid.Dataset, ds)
//	h.Category() // hid.Dataset
//	h.Index()    // slot index within the dataset table
//
// Handles are process-lifetime values. Log them, never persist them.
//
// # Categories
//
// Each category is opened by every subsystem that uses it:
//
//	err := reg.Open(hid.Attribute, hid.CategoryConfig{
//	    Buckets: 64,
//	    Release: func(obj any) error { return obj.(*Attr).Close() },
//	})
//
// The first Open sizes the table; later Opens only bump a usage count, so
// redundant initialization is harmless. The last Close force-releases whatever
// is left and frees the table.
//
// Reserved indices [0, Reserved) are never minted. They are left for constant
// handles managed outside the registry (predefined datatypes, for example).
//
// # Storage
//
// A category holds a fixed-size hash table of Buckets chains (power of two, no
// resizing). Register pushes new entries at the head of their chain, and a
// successful lookup moves the entry to the head of its chain. Nothing is ever
// evicted.
//
// # Minting and Wraparound
//
// Indices are minted from a monotonic cursor starting at Reserved. Once the
// cursor runs past the index limit it restarts at Reserved and the category is
// marked wrapped. From then on every Register probes the full index space for
// an index with no live entry, failing with ErrNoHandlesAvailable only when
// every index is held.
//
// # Reference Counting
//
// Register returns a handle with one reference. DecRef of the last reference
// runs the category's ReleaseFunc and removes the entry; if the callback fails
// the entry stays, still with one reference, and DecRef returns
// ErrReleaseFailed so the caller can retry. Remove transfers the object back
// to the caller without running the callback.
//
// # Thread Safety
//
// Registry is not thread-safe. Callers must hold a single lock around every
// call; pkg/library does this for the whole process.
package hid
