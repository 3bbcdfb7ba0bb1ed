package hid

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// SearchFunc reports whether obj (registered as h) is the one wanted for key.
type SearchFunc func(obj any, h Handle, key any) bool

// Search returns the first object of cat for which pred returns true.
//
// Buckets are scanned in order and each chain head to tail. pred may remove or
// register entries; the walk stays intact, but entries added or removed during
// the scan may be missed or seen twice.
func (r *Registry) Search(cat Category, pred SearchFunc, key any) (any, bool) {
	if !r.IsOpen(cat) {
		return nil, false
	}
	var (
		found any
		hit   bool
	)
	r.cats[cat].table.each(func(s *slot) bool {
		if pred(s.obj, s.handle, key) {
			found, hit = s.obj, true
			return false
		}
		return true
	})
	return found, hit
}

// Dump writes a human-readable table of cat: its counters followed by every
// non-empty bucket chain, head first.
func (r *Registry) Dump(w io.Writer, cat Category) error {
	c, err := r.category(cat)
	if err != nil {
		return err
	}
	st := c.stats(cat)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "category:\t%s\n", cat)
	fmt.Fprintf(tw, "usage:\t%d\n", st.Usage)
	fmt.Fprintf(tw, "active:\t%d\n", st.Active)
	fmt.Fprintf(tw, "buckets:\t%d\n", st.Buckets)
	fmt.Fprintf(tw, "reserved:\t%d\n", st.Reserved)
	fmt.Fprintf(tw, "next:\t%d (wrapped=%t)\n", st.Next, st.Wrapped)
	for i := range c.table.buckets {
		chain := c.table.chain(i)
		if len(chain) == 0 {
			continue
		}
		fmt.Fprintf(tw, "bucket %d:", i)
		for _, h := range chain {
			s := c.table.find(h.Index())
			fmt.Fprintf(tw, "\t%s refs=%d %T", h, s.refs, s.obj)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
