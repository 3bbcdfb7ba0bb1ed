package library

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joshuapare/hidkit/hid"
	"github.com/joshuapare/hidkit/hid/shutdown"
	"github.com/joshuapare/hidkit/internal/logger"
)

// ErrShutdown is returned by every call made after Shutdown.
var ErrShutdown = errors.New("library: shut down")

// ReleaseFunc frees an object of a subsystem. It runs with the library lock
// held and receives the registry directly, so it may drop handles it owns
// (a dataset releasing its datatype, say) but must not call back into the
// Library itself.
type ReleaseFunc func(reg *hid.Registry, obj any) error

// Subsystem is one consumer of a handle category: attribute code, reference
// code, and so on. Several subsystems may share a category.
type Subsystem struct {
	Name     string
	Category hid.Category
	Release  ReleaseFunc
}

// Closer is the release policy for objects that know how to close themselves.
func Closer(_ *hid.Registry, obj any) error {
	if c, ok := obj.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Library is the process-wide embedding of a handle registry. Every method
// holds one mutex for its whole duration, which is the only synchronization the
// registry has.
type Library struct {
	mu     sync.Mutex
	reg    *hid.Registry
	cfg    Config
	log    *slog.Logger
	report *shutdown.Report
}

// New creates a Library with no categories open.
func New(cfg Config) *Library {
	if cfg.Layouts == nil {
		cfg.Layouts = DefaultLayouts()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.L
	}
	return &Library{
		reg: hid.New(hid.Config{Logger: log, IndexLimit: cfg.IndexLimit}),
		cfg: cfg,
		log: log,
	}
}

// Init opens the subsystem's category. The first subsystem to open a category
// decides its layout and release policy; later ones only add a user.
func (l *Library) Init(sub Subsystem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return ErrShutdown
	}

	layout := l.cfg.Layout(sub.Category)
	cc := hid.CategoryConfig{Buckets: layout.Buckets, Reserved: layout.Reserved}
	if sub.Release != nil {
		release, reg := sub.Release, l.reg
		cc.Release = func(obj any) error { return release(reg, obj) }
	}
	if err := l.reg.Open(sub.Category, cc); err != nil {
		return fmt.Errorf("library: init %s: %w", sub.Name, err)
	}
	l.log.Debug("library: subsystem initialized", "subsystem", sub.Name, "category", sub.Category)
	return nil
}

// Term drops the subsystem's use of its category. The last user's Term
// releases whatever is left in the category.
func (l *Library) Term(sub Subsystem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return ErrShutdown
	}
	released, err := l.reg.Close(sub.Category)
	if err != nil {
		return fmt.Errorf("library: term %s: %w", sub.Name, err)
	}
	l.log.Debug("library: subsystem terminated", "subsystem", sub.Name,
		"category", sub.Category, "released", released)
	return nil
}

// Register stores obj under a new handle of cat.
func (l *Library) Register(cat hid.Category, obj any) (hid.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return hid.Invalid, ErrShutdown
	}
	return l.reg.Register(cat, obj)
}

// Lookup resolves h, which must be a handle of cat.
func (l *Library) Lookup(h hid.Handle, cat hid.Category) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return nil, false
	}
	return l.reg.LookupTyped(h, cat)
}

// Get resolves h as a T registered under cat.
func Get[T any](l *Library, h hid.Handle, cat hid.Category) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		var zero T
		return zero, false
	}
	return hid.As[T](l.reg, h, cat)
}

// IncRef adds a reference to h.
func (l *Library) IncRef(h hid.Handle) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return 0, ErrShutdown
	}
	return l.reg.IncRef(h)
}

// DecRef drops a reference to h, releasing it on the last one.
func (l *Library) DecRef(h hid.Handle) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return 0, ErrShutdown
	}
	return l.reg.DecRef(h)
}

// RefCount returns the reference count of h.
func (l *Library) RefCount(h hid.Handle) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return 0, ErrShutdown
	}
	return l.reg.RefCount(h)
}

// Remove detaches h and returns its object without releasing it.
func (l *Library) Remove(h hid.Handle) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return nil, ErrShutdown
	}
	return l.reg.Remove(h)
}

// Search returns the first object in cat matching pred. pred runs with the
// lock held and must not call the Library.
func (l *Library) Search(cat hid.Category, pred hid.SearchFunc, key any) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return nil, false
	}
	return l.reg.Search(cat, pred, key)
}

// Stats returns a snapshot of every open category in tag order.
func (l *Library) Stats() []hid.CategoryStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []hid.CategoryStats
	for _, c := range l.reg.OpenCategories() {
		if st, ok := l.reg.Stats(c); ok {
			out = append(out, st)
		}
	}
	return out
}

// Do runs fn with the lock held, for callers that need several registry
// operations to happen atomically.
func (l *Library) Do(fn func(reg *hid.Registry) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return ErrShutdown
	}
	return fn(l.reg)
}

// Shutdown tears down every open category and returns the report. Later
// calls return the same report; every other method fails with ErrShutdown.
func (l *Library) Shutdown() *shutdown.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return l.report
	}
	l.report = shutdown.Run(l.reg, shutdown.Options{
		MaxRounds: l.cfg.ShutdownRounds,
		Logger:    l.log,
	})
	return l.report
}
