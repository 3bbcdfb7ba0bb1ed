package hid

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle bit layout (int32):
//
//	bit 31      sign; a negative handle is always invalid
//	bits 24-30  category tag (TagBits)
//	bits 0-23   slot index (IndexBits)
const (
	// HandleBits is the number of usable (non-sign) bits in a Handle.
	HandleBits = 31

	// TagBits is the width of the category tag field.
	TagBits = 7

	// IndexBits is the width of the slot index field.
	IndexBits = HandleBits - TagBits

	// MaxIndex is the largest slot index a handle can carry.
	MaxIndex = 1<<IndexBits - 1

	tagMask   = 1<<TagBits - 1
	indexMask = MaxIndex
)

// The declared categories must fit the tag field. This fails to compile
// (negative array length) if NumCategories ever outgrows 2^TagBits.
var _ [1<<TagBits - int(NumCategories)]struct{}

// Handle identifies a registered object. It encodes a category tag and a slot
// index. Handles are valid for the lifetime of the process only and must never
// be written to disk.
type Handle int32

// Invalid is the error sentinel handle.
const Invalid Handle = -1

// Encode packs a category tag and slot index into a Handle.
// Both values are masked to their field widths.
func Encode(cat Category, index uint32) Handle {
	return Handle((uint32(cat)&tagMask)<<IndexBits | index&indexMask)
}

// Decode returns the category tag of h without looking at any storage; the
// object behind h may no longer exist. Negative handles decode to BadCategory.
func Decode(h Handle) Category {
	if h < 0 {
		return BadCategory
	}
	return Category((uint32(h) >> IndexBits) & tagMask)
}

// Category is shorthand for Decode(h).
func (h Handle) Category() Category { return Decode(h) }

// Index returns the slot index bits of h. Negative handles have no index.
func (h Handle) Index() uint32 {
	if h < 0 {
		return 0
	}
	return uint32(h) & indexMask
}

// String renders h for diagnostics, e.g. "dataset#42".
func (h Handle) String() string {
	cat := h.Category()
	if cat == BadCategory || !cat.valid() {
		return "invalid(" + strconv.FormatInt(int64(h), 10) + ")"
	}
	return cat.String() + "#" + strconv.FormatUint(uint64(h.Index()), 10)
}

// ParseHandle parses a decimal or 0x-prefixed hexadecimal handle value.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return Invalid, fmt.Errorf("hid: parse handle %q: %w", s, err)
	}
	return Handle(v), nil
}
