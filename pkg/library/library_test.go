package library_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hidkit/hid"
	"github.com/joshuapare/hidkit/pkg/library"
)

type closeable struct {
	name   string
	closed int
	err    error
}

func (c *closeable) Close() error {
	c.closed++
	return c.err
}

func TestLibrary_RegisterLookupRelease(t *testing.T) {
	lib := library.New(library.DefaultConfig())
	require.NoError(t, lib.Init(library.Attributes))

	attr := &closeable{name: "units"}
	h, err := lib.Register(hid.Attribute, attr)
	require.NoError(t, err)

	got, ok := library.Get[*closeable](lib, h, hid.Attribute)
	require.True(t, ok)
	assert.Same(t, attr, got)

	_, ok = lib.Lookup(h, hid.Dataset)
	assert.False(t, ok)

	n, err := lib.DecRef(h)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, attr.closed)
}

func TestLibrary_FailedCloseIsRetryable(t *testing.T) {
	lib := library.New(library.DefaultConfig())
	require.NoError(t, lib.Init(library.Files))

	f := &closeable{name: "busy.h5", err: errors.New("file busy")}
	h, err := lib.Register(hid.File, f)
	require.NoError(t, err)

	_, err = lib.DecRef(h)
	require.ErrorIs(t, err, hid.ErrReleaseFailed)
	n, err := lib.RefCount(h)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.err = nil
	_, err = lib.DecRef(h)
	require.NoError(t, err)
	assert.Equal(t, 2, f.closed)
}

func TestLibrary_LayoutComesFromConfig(t *testing.T) {
	cfg := library.DefaultConfig()
	cfg.Layouts[hid.Dataset] = library.Layout{Buckets: 4, Reserved: 3}
	lib := library.New(cfg)

	require.NoError(t, lib.Init(library.Datasets))
	// A second subsystem on the same category only adds a user.
	require.NoError(t, lib.Init(library.Subsystem{Name: "vlen", Category: hid.Dataset}))

	h, err := lib.Register(hid.Dataset, "ds")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), h.Index())

	stats := lib.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 4, stats[0].Buckets)
	assert.Equal(t, 2, stats[0].Usage)

	require.NoError(t, lib.Term(library.Datasets))
	_, ok := lib.Lookup(h, hid.Dataset)
	assert.True(t, ok, "category still has a user")
}

func TestLibrary_SubsystemReleaseSeesRegistry(t *testing.T) {
	lib := library.New(library.DefaultConfig())
	require.NoError(t, lib.Init(library.Datatypes))

	type dataset struct{ dtype hid.Handle }
	require.NoError(t, lib.Init(library.Subsystem{
		Name:     "dataset",
		Category: hid.Dataset,
		Release: func(reg *hid.Registry, obj any) error {
			_, err := reg.DecRef(obj.(*dataset).dtype)
			return err
		},
	}))

	dt, err := lib.Register(hid.Datatype, &closeable{name: "f64"})
	require.NoError(t, err)
	assert.Equal(t, uint32(library.DatatypeReserved), dt.Index())

	var ds hid.Handle
	require.NoError(t, lib.Do(func(reg *hid.Registry) error {
		if _, err := reg.IncRef(dt); err != nil {
			return err
		}
		ds, err = reg.Register(hid.Dataset, &dataset{dtype: dt})
		return err
	}))

	_, err = lib.DecRef(ds)
	require.NoError(t, err)
	n, err := lib.RefCount(dt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLibrary_Shutdown(t *testing.T) {
	lib := library.New(library.DefaultConfig())
	require.NoError(t, lib.InitAll())

	objs := []*closeable{{name: "a"}, {name: "b"}, {name: "c"}}
	for i, o := range objs {
		cat := []hid.Category{hid.File, hid.Dataset, hid.Reference}[i]
		_, err := lib.Register(cat, o)
		require.NoError(t, err)
	}

	rep := lib.Shutdown()
	require.True(t, rep.Clean(), rep.String())
	assert.Equal(t, 3, rep.Released)
	assert.Len(t, rep.Closed, len(library.Subsystems()))
	for _, o := range objs {
		assert.Equal(t, 1, o.closed, o.name)
	}

	assert.Same(t, rep, lib.Shutdown(), "second shutdown returns the same report")

	_, err := lib.Register(hid.File, "late")
	require.ErrorIs(t, err, library.ErrShutdown)
	require.ErrorIs(t, lib.Init(library.Files), library.ErrShutdown)
	_, ok := lib.Lookup(hid.Encode(hid.File, 0), hid.File)
	assert.False(t, ok)
}

func TestLibrary_ConcurrentUse(t *testing.T) {
	lib := library.New(library.DefaultConfig())
	require.NoError(t, lib.Init(library.Datasets))

	const workers, perWorker = 8, 200
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				obj := &closeable{name: "ds"}
				h, err := lib.Register(hid.Dataset, obj)
				if err != nil {
					errs <- err
					return
				}
				if _, err := lib.IncRef(h); err != nil {
					errs <- err
					return
				}
				got, ok := lib.Lookup(h, hid.Dataset)
				if !ok || got != obj {
					errs <- errors.New("lookup mismatch")
					return
				}
				if (w+i)%2 == 0 {
					if _, err := lib.Remove(h); err != nil {
						errs <- err
						return
					}
					continue
				}
				for range 2 {
					if _, err := lib.DecRef(h); err != nil {
						errs <- err
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats := lib.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].Active)
}

func TestLibrary_Search(t *testing.T) {
	lib := library.New(library.DefaultConfig())
	require.NoError(t, lib.Init(library.Files))
	for _, n := range []string{"a.h5", "b.h5"} {
		_, err := lib.Register(hid.File, &closeable{name: n})
		require.NoError(t, err)
	}
	got, ok := lib.Search(hid.File, func(obj any, _ hid.Handle, key any) bool {
		return obj.(*closeable).name == key
	}, "b.h5")
	require.True(t, ok)
	assert.Equal(t, "b.h5", got.(*closeable).name)
}
