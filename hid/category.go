package hid

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is the kind of object a handle refers to. Each category has its own
// slot table, reserved range and release policy.
type Category int

// BadCategory is what negative handles decode to. It never matches a real category.
const BadCategory Category = -1

// Tag 0 is never assigned so that the zero Handle is invalid.
const (
	File         Category = iota + 1 // open files
	Group                            // groups
	Datatype                         // datatypes
	Dataspace                        // dataspaces
	Dataset                          // datasets
	Attribute                        // attributes
	Reference                        // dataset region references
	VFL                              // virtual file drivers
	PropClass                        // property list classes
	PropList                         // property lists
	ErrorClass                       // error classes
	ErrorMsg                         // error messages
	ErrorStack                       // error stacks
	categoryEnd
)

// NumCategories is the size of the category tag range, including the unused tag 0.
const NumCategories = categoryEnd

var categoryNames = [NumCategories]string{
	File:       "file",
	Group:      "group",
	Datatype:   "datatype",
	Dataspace:  "dataspace",
	Dataset:    "dataset",
	Attribute:  "attribute",
	Reference:  "reference",
	VFL:        "vfl",
	PropClass:  "propclass",
	PropList:   "proplist",
	ErrorClass: "errorclass",
	ErrorMsg:   "errormsg",
	ErrorStack: "errorstack",
}

// Categories returns every real category in tag order.
func Categories() []Category {
	out := make([]Category, 0, NumCategories-1)
	for c := File; c < NumCategories; c++ {
		out = append(out, c)
	}
	return out
}

func (c Category) valid() bool { return c >= File && c < NumCategories }

func (c Category) String() string {
	if !c.valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText renders the category name, so JSON output reads "dataset" rather than 5.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts anything ParseCategory does.
func (c *Category) UnmarshalText(text []byte) error {
	v, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCategory resolves a category by its lowercase name ("dataset") or tag number.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c := File; c < NumCategories; c++ {
		if categoryNames[c] == name {
			return c, nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && Category(n).valid() {
		return Category(n), nil
	}
	return BadCategory, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// ReleaseFunc frees an object whose last reference was dropped. A non-nil error
// keeps the slot alive (except during a forced clear).
type ReleaseFunc func(obj any) error

// CategoryConfig sizes a category on its first Open. It is ignored by every
// later Open of the same category until the category is fully closed.
type CategoryConfig struct {
	// Buckets is the fixed hash table size. Must be a power of two >= 2.
	Buckets int

	// Reserved is the number of low slot indices never handed out by Register.
	Reserved uint32

	// Release is called when an entry's reference count drops to zero. May be nil.
	Release ReleaseFunc
}

// category is the per-category registry entry. It exists only while usage > 0.
type category struct {
	usage    int
	reserved uint32
	limit    uint32 // largest mintable index
	next     uint32
	wrapped  bool
	release  ReleaseFunc
	table    *slotTable
}

func newCategory(cfg CategoryConfig, limit uint32) *category {
	return &category{
		usage:    1,
		reserved: cfg.Reserved,
		limit:    limit,
		next:     cfg.Reserved,
		release:  cfg.Release,
		table:    newSlotTable(cfg.Buckets),
	}
}

// mint returns the next free slot index. Before the cursor first passes limit
// every index it yields is fresh. After that, the whole space from reserved to
// limit is probed for an index with no live entry.
func (c *category) mint() (uint32, error) {
	idx := c.next
	c.advance()
	if !c.wrapped {
		return idx, nil
	}

	span := uint64(c.limit-c.reserved) + 1
	for range span {
		if c.table.find(idx) == nil {
			c.next = idx
			c.advance()
			return idx, nil
		}
		idx++
		if idx > c.limit {
			idx = c.reserved
		}
	}
	return 0, ErrNoHandlesAvailable
}

func (c *category) advance() {
	if c.next >= c.limit {
		c.wrapped = true
		c.next = c.reserved
		return
	}
	c.next++
}

// CategoryStats is a snapshot of one open category.
type CategoryStats struct {
	Category Category `json:"category"`
	Usage    int      `json:"usage"`
	Active   int      `json:"active"`
	Buckets  int      `json:"buckets"`
	Reserved uint32   `json:"reserved"`
	Limit    uint32   `json:"limit"`
	Next     uint32   `json:"next"`
	Wrapped  bool     `json:"wrapped"`

	// LongestChain is the longest collision chain across all buckets.
	LongestChain int `json:"longest_chain"`
}

func (c *category) stats(cat Category) CategoryStats {
	return CategoryStats{
		Category:     cat,
		Usage:        c.usage,
		Active:       c.table.active,
		Buckets:      len(c.table.buckets),
		Reserved:     c.reserved,
		Limit:        c.limit,
		Next:         c.next,
		Wrapped:      c.wrapped,
		LongestChain: c.table.longestChain(),
	}
}
