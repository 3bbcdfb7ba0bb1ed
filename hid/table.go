package hid

// slot is one registered object. refs is >= 1 for as long as the slot is
// reachable from a bucket chain and 0 once it has been unlinked.
type slot struct {
	handle Handle
	refs   int
	obj    any
	next   *slot
}

// slotTable is a fixed-size open hash table keyed by slot index. Collisions
// chain through slot.next; new slots go to the head of their chain.
//
// The bucket count is a power of two so the bucket of an index is index&mask.
type slotTable struct {
	buckets []*slot
	mask    uint32
	active  int
}

func newSlotTable(n int) *slotTable {
	return &slotTable{
		buckets: make([]*slot, n),
		mask:    uint32(n - 1),
	}
}

func (t *slotTable) bucket(index uint32) **slot {
	return &t.buckets[index&t.mask]
}

// insert links s at the head of its chain.
func (t *slotTable) insert(s *slot) {
	head := t.bucket(s.handle.Index())
	s.next = *head
	*head = s
	t.active++
}

// find returns the slot holding index without reordering the chain.
func (t *slotTable) find(index uint32) *slot {
	for s := *t.bucket(index); s != nil; s = s.next {
		if s.handle.Index() == index {
			return s
		}
	}
	return nil
}

// lookup returns the slot for h and moves it to the front of its chain.
// Promotion only reorders within one bucket; nothing is ever evicted.
func (t *slotTable) lookup(h Handle) *slot {
	head := t.bucket(h.Index())
	var prev *slot
	for s := *head; s != nil; prev, s = s, s.next {
		if s.handle != h {
			continue
		}
		if prev != nil {
			prev.next = s.next
			s.next = *head
			*head = s
		}
		return s
	}
	return nil
}

// unlink detaches the slot for h and returns it, or nil if h is not present.
// The detached slot keeps its next pointer so an in-progress walk holding it
// can still reach the rest of the chain.
func (t *slotTable) unlink(h Handle) *slot {
	for p := t.bucket(h.Index()); *p != nil; p = &(*p).next {
		if s := *p; s.handle == h {
			*p = s.next
			s.refs = 0
			t.active--
			return s
		}
	}
	return nil
}

// each calls fn for every live slot until fn returns false. The successor is
// read before fn runs, so fn may unlink the slot it was handed (or others)
// without breaking the walk. Slots inserted during the walk may be skipped or
// visited; unlinked slots are skipped.
func (t *slotTable) each(fn func(s *slot) bool) {
	for i := range t.buckets {
		for s := t.buckets[i]; s != nil; {
			next := s.next
			if s.refs > 0 && !fn(s) {
				return
			}
			s = next
		}
	}
}

func (t *slotTable) longestChain() int {
	longest := 0
	for _, s := range t.buckets {
		n := 0
		for ; s != nil; s = s.next {
			n++
		}
		longest = max(longest, n)
	}
	return longest
}

// chain returns the handles in one bucket, head first.
func (t *slotTable) chain(bucket int) []Handle {
	var out []Handle
	for s := t.buckets[bucket]; s != nil; s = s.next {
		out = append(out, s.handle)
	}
	return out
}
