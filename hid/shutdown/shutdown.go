// Package shutdown tears down every open handle category in dependency order.
//
// Categories depend on each other informally: releasing a dataset drops its
// datatype and dataspace references, an attribute may pin a file open, and so
// on. Rather than sort a dependency graph, Run closes categories in a fixed
// most-dependent-first order and repeats the pass until nothing changes,
// giving up after a bounded number of rounds.
package shutdown

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/joshuapare/hidkit/hid"
)

// DefaultMaxRounds bounds the fixed-point loop.
const DefaultMaxRounds = 100

// DefaultOrder closes the most dependent categories first.
var DefaultOrder = []hid.Category{
	hid.Reference,
	hid.Attribute,
	hid.Dataset,
	hid.Group,
	hid.Datatype,
	hid.Dataspace,
	hid.File,
	hid.PropList,
	hid.PropClass,
	hid.VFL,
	hid.ErrorStack,
	hid.ErrorMsg,
	hid.ErrorClass,
}

// Registry is the subset of *hid.Registry used for teardown.
type Registry interface {
	IsOpen(cat hid.Category) bool
	Close(cat hid.Category) (int, error)
	Stats(cat hid.Category) (hid.CategoryStats, bool)
	OpenCategories() []hid.Category
}

// Options controls a teardown run.
type Options struct {
	// Order overrides DefaultOrder. Open categories missing from it are closed
	// after the listed ones, in tag order.
	Order []hid.Category

	// MaxRounds bounds the number of passes. Zero means DefaultMaxRounds.
	MaxRounds int

	// Logger receives the report summary. Nil discards it.
	Logger *slog.Logger
}

// Undrained describes a category still open when teardown gave up.
type Undrained struct {
	Category hid.Category `json:"category"`
	Usage    int          `json:"usage"`
	Active   int          `json:"active"`
}

// Report is the outcome of a teardown run.
type Report struct {
	// Rounds is the number of passes made.
	Rounds int `json:"rounds"`

	// Released counts entries force-released by closes across all rounds.
	Released int `json:"released"`

	// Closed lists categories in the order their storage was freed.
	Closed []hid.Category `json:"closed"`

	// Undrained lists categories still open at the end. Empty means clean.
	Undrained []Undrained `json:"undrained,omitempty"`
}

// Clean reports whether every category drained.
func (r *Report) Clean() bool { return len(r.Undrained) == 0 }

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "shutdown: %d round(s), %d entries released, %d categories closed",
		r.Rounds, r.Released, len(r.Closed))
	for _, u := range r.Undrained {
		fmt.Fprintf(&b, "\n  undrained %s: usage=%d active=%d", u.Category, u.Usage, u.Active)
	}
	return b.String()
}

// Run closes every open category of reg and reports what happened.
//
// Each round calls Close once on every open category in order. A round is
// pending if a close released entries (their release callbacks may have
// dropped references held elsewhere) or left the category open (it had more
// than one user, or was reopened by a callback). Rounds repeat while pending,
// up to MaxRounds.
func Run(reg Registry, opts Options) *Report {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := opts.Order
	if base == nil {
		base = DefaultOrder
	}

	rep := &Report{}
	for rep.Rounds < maxRounds {
		order := completeOrder(base, reg.OpenCategories())
		if len(order) == 0 {
			break
		}
		rep.Rounds++

		pending := false
		for _, cat := range order {
			if !reg.IsOpen(cat) {
				continue
			}
			released, err := reg.Close(cat)
			if err != nil {
				// Closed from inside another category's release callback.
				log.Debug("shutdown: close failed", "category", cat, "error", err)
				continue
			}
			rep.Released += released
			if released > 0 {
				pending = true
			}
			if reg.IsOpen(cat) {
				pending = true
				continue
			}
			rep.Closed = append(rep.Closed, cat)
		}
		if !pending {
			break
		}
	}

	for _, cat := range reg.OpenCategories() {
		u := Undrained{Category: cat}
		if st, ok := reg.Stats(cat); ok {
			u.Usage, u.Active = st.Usage, st.Active
		}
		rep.Undrained = append(rep.Undrained, u)
	}

	if rep.Clean() {
		log.Info("shutdown: complete", "rounds", rep.Rounds,
			"released", rep.Released, "closed", len(rep.Closed))
	} else {
		log.Warn("shutdown: gave up with categories still open", "rounds", rep.Rounds,
			"released", rep.Released, "undrained", len(rep.Undrained))
		for _, u := range rep.Undrained {
			log.Warn("shutdown: undrained category", "category", u.Category,
				"usage", u.Usage, "active", u.Active)
		}
	}
	return rep
}

// completeOrder returns the open categories, listed ones first in base order,
// then any others in tag order.
func completeOrder(base, open []hid.Category) []hid.Category {
	out := make([]hid.Category, 0, len(open))
	for _, c := range base {
		if slices.Contains(open, c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	for _, c := range open {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
