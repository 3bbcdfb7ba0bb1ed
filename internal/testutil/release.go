package testutil

import "errors"

// ErrRelease is the error returned by failing releasers.
var ErrRelease = errors.New("testutil: release refused")

// Releaser records release callbacks. Its Release method has the shape of
// hid.ReleaseFunc.
type Releaser struct {
	calls map[any]int
	order []any

	// Fail, when set, decides which objects refuse to be released.
	Fail func(obj any) bool
}

// NewReleaser returns a Releaser that accepts every release.
func NewReleaser() *Releaser {
	return &Releaser{calls: make(map[any]int)}
}

// FailingReleaser returns a Releaser that refuses every release.
func FailingReleaser() *Releaser {
	r := NewReleaser()
	r.Fail = func(any) bool { return true }
	return r
}

// Release records obj and returns ErrRelease if Fail says so.
func (r *Releaser) Release(obj any) error {
	r.calls[obj]++
	r.order = append(r.order, obj)
	if r.Fail != nil && r.Fail(obj) {
		return ErrRelease
	}
	return nil
}

// Calls returns how many times obj was passed to Release.
func (r *Releaser) Calls(obj any) int { return r.calls[obj] }

// Total returns the number of Release calls across all objects.
func (r *Releaser) Total() int { return len(r.order) }

// Order returns the objects in the order they were released.
func (r *Releaser) Order() []any { return append([]any(nil), r.order...) }
