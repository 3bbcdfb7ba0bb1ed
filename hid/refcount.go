package hid

import "fmt"

// IncRef adds a reference to h and returns the new count.
func (r *Registry) IncRef(h Handle) (int, error) {
	s := r.slot(h)
	if s == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	s.refs++
	return s.refs, nil
}

// DecRef drops a reference to h and returns the remaining count.
//
// Dropping the last reference runs the category's release callback and removes
// the entry, returning 0. If the callback fails the entry is kept with one
// reference and the error wraps ErrReleaseFailed, so the caller can retry.
func (r *Registry) DecRef(h Handle) (int, error) {
	s := r.slot(h)
	if s == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if s.refs > 1 {
		s.refs--
		return s.refs, nil
	}

	c := r.cats[h.Category()]
	if c.release != nil {
		if err := c.release(s.obj); err != nil {
			return s.refs, fmt.Errorf("%w: %s: %w", ErrReleaseFailed, h, err)
		}
	}
	c.table.unlink(h)
	s.obj = nil
	return 0, nil
}

// RefCount returns the current reference count of h.
func (r *Registry) RefCount(h Handle) (int, error) {
	s := r.slot(h)
	if s == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	return s.refs, nil
}

// Remove detaches h regardless of its reference count and hands the object
// back to the caller. The release callback is not called; cleanup is now the
// caller's job.
func (r *Registry) Remove(h Handle) (any, error) {
	cat := h.Category()
	if !cat.valid() || r.cats[cat] == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	s := r.cats[cat].table.unlink(h)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	obj := s.obj
	s.obj = nil
	return obj, nil
}
