package hid

import (
	"fmt"
	"log/slog"
)

// Registry maps handles to objects for every category.
//
// A Registry is not safe for concurrent use. The embedding runtime must hold
// one lock around every call (see pkg/library). Release callbacks run inside
// the call that triggered them and may call back into the same Registry.
type Registry struct {
	cats  [NumCategories]*category
	limit uint32
	log   *slog.Logger
}

// New creates an empty Registry with every category closed.
func New(cfg Config) *Registry {
	return &Registry{
		limit: cfg.limit(),
		log:   cfg.logger(),
	}
}

func validBuckets(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// Open registers one more user of cat. The first Open allocates the slot
// table from cfg; later Opens only bump the usage count and ignore cfg.
func (r *Registry) Open(cat Category, cfg CategoryConfig) error {
	if !cat.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCategory, int(cat))
	}
	if c := r.cats[cat]; c != nil {
		c.usage++
		r.log.Debug("hid: category reopened", "category", cat, "usage", c.usage)
		return nil
	}
	if !validBuckets(cfg.Buckets) {
		return fmt.Errorf("%w: %s: %d", ErrInvalidBucketCount, cat, cfg.Buckets)
	}
	if cfg.Reserved > r.limit {
		return fmt.Errorf("%w: %s: reserved %d, limit %d", ErrInvalidReserved, cat, cfg.Reserved, r.limit)
	}
	r.cats[cat] = newCategory(cfg, r.limit)
	r.log.Debug("hid: category opened", "category", cat,
		"buckets", cfg.Buckets, "reserved", cfg.Reserved)
	return nil
}

// Close drops one user of cat. Closing the last user force-clears every
// remaining entry, frees the table and returns the number of entries removed.
//
// A release callback that reopens cat while it is being torn down keeps the
// category alive; its storage is then retained rather than freed.
func (r *Registry) Close(cat Category) (int, error) {
	c, err := r.category(cat)
	if err != nil {
		return 0, err
	}
	if c.usage > 1 {
		c.usage--
		r.log.Debug("hid: category released", "category", cat, "usage", c.usage)
		return 0, nil
	}

	// usage 0 marks the category as tearing down: callbacks may still look up
	// and release its entries but cannot register new ones.
	c.usage = 0
	removed, _ := r.clear(cat, c, true)
	if c.usage > 0 {
		r.log.Debug("hid: category reopened during close", "category", cat, "usage", c.usage)
		return removed, nil
	}
	r.cats[cat] = nil
	r.log.Debug("hid: category closed", "category", cat, "released", removed)
	return removed, nil
}

// Clear releases entries of cat. Without force, entries that have more than
// one reference are skipped and entries whose release callback fails stay in
// place, in which case Clear returns ErrReleaseFailed after finishing the walk.
// With force every entry is removed and release failures are logged once.
func (r *Registry) Clear(cat Category, force bool) (int, error) {
	c, err := r.category(cat)
	if err != nil {
		return 0, err
	}
	removed, failed := r.clear(cat, c, force)
	if failed > 0 && !force {
		return removed, fmt.Errorf("%w: %s: %d entries kept", ErrReleaseFailed, cat, failed)
	}
	return removed, nil
}

func (r *Registry) clear(cat Category, c *category, force bool) (removed, failed int) {
	var firstErr error
	c.table.each(func(s *slot) bool {
		if !force && s.refs > 1 {
			return true
		}
		if c.release != nil {
			if err := c.release(s.obj); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				if !force {
					return true
				}
			}
		}
		// The callback may already have removed its own slot.
		if c.table.unlink(s.handle) != nil {
			removed++
		}
		s.obj = nil
		return true
	})
	if force && failed > 0 {
		r.log.Warn("hid: forced clear ignored release failures",
			"category", cat, "failures", failed, "removed", removed, "first_error", firstErr)
	}
	return removed, failed
}

// Register stores obj under a freshly minted handle of cat with one reference.
func (r *Registry) Register(cat Category, obj any) (Handle, error) {
	c, err := r.category(cat)
	if err != nil {
		return Invalid, err
	}
	idx, err := c.mint()
	if err != nil {
		return Invalid, fmt.Errorf("%w: %s", err, cat)
	}
	h := Encode(cat, idx)
	c.table.insert(&slot{handle: h, refs: 1, obj: obj})
	return h, nil
}

// Lookup returns the object behind h. Not found is not an error: it returns
// (nil, false) for unknown categories and stale handles alike.
func (r *Registry) Lookup(h Handle) (any, bool) {
	s := r.slot(h)
	if s == nil {
		return nil, false
	}
	return s.obj, true
}

// LookupTyped is Lookup restricted to handles of category cat. A handle of any
// other category is rejected before storage is consulted.
func (r *Registry) LookupTyped(h Handle, cat Category) (any, bool) {
	if h.Category() != cat {
		return nil, false
	}
	return r.Lookup(h)
}

// As returns the object behind h as a T. It fails if h is not a handle of
// cat, is stale, or holds something other than a T.
func As[T any](r *Registry, h Handle, cat Category) (T, bool) {
	obj, ok := r.LookupTyped(h, cat)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := obj.(T)
	return v, ok
}

// Valid reports whether h resolves to a live entry. It does not reorder chains.
func (r *Registry) Valid(h Handle) bool {
	cat := h.Category()
	if !cat.valid() || r.cats[cat] == nil {
		return false
	}
	s := r.cats[cat].table.find(h.Index())
	return s != nil && s.handle == h
}

// IsOpen reports whether cat currently has storage.
func (r *Registry) IsOpen(cat Category) bool {
	return cat.valid() && r.cats[cat] != nil && r.cats[cat].usage > 0
}

// OpenCategories lists open categories in tag order.
func (r *Registry) OpenCategories() []Category {
	var out []Category
	for c := File; c < NumCategories; c++ {
		if r.IsOpen(c) {
			out = append(out, c)
		}
	}
	return out
}

// Members returns the number of live entries in cat (0 if it is not open).
func (r *Registry) Members(cat Category) (int, error) {
	if !cat.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCategory, int(cat))
	}
	if c := r.cats[cat]; c != nil {
		return c.table.active, nil
	}
	return 0, nil
}

// Stats returns a snapshot of cat, or false if it is not open.
func (r *Registry) Stats(cat Category) (CategoryStats, bool) {
	if !r.IsOpen(cat) {
		return CategoryStats{}, false
	}
	return r.cats[cat].stats(cat), true
}

func (r *Registry) category(cat Category) (*category, error) {
	if !cat.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(cat))
	}
	c := r.cats[cat]
	if c == nil || c.usage == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
	}
	return c, nil
}

// slot resolves h, promoting the hit within its bucket.
func (r *Registry) slot(h Handle) *slot {
	cat := h.Category()
	if !cat.valid() {
		return nil
	}
	c := r.cats[cat]
	if c == nil {
		return nil
	}
	return c.table.lookup(h)
}
