package shutdown_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hidkit/hid"
	"github.com/joshuapare/hidkit/hid/shutdown"
	"github.com/joshuapare/hidkit/internal/testutil"
)

type dataset struct {
	dtype, space hid.Handle
}

func TestRun_DrainsInDependencyOrder(t *testing.T) {
	reg := hid.New(hid.DefaultConfig())
	types := testutil.NewReleaser()
	spaces := testutil.NewReleaser()
	seen := testutil.NewReleaser()

	require.NoError(t, reg.Open(hid.File, hid.CategoryConfig{Buckets: 4, Release: seen.Release}))
	require.NoError(t, reg.Open(hid.Datatype, hid.CategoryConfig{Buckets: 4, Reserved: 8, Release: types.Release}))
	require.NoError(t, reg.Open(hid.Dataspace, hid.CategoryConfig{Buckets: 4, Reserved: 2, Release: spaces.Release}))
	require.NoError(t, reg.Open(hid.Attribute, hid.CategoryConfig{Buckets: 4, Release: seen.Release}))
	require.NoError(t, reg.Open(hid.Dataset, hid.CategoryConfig{Buckets: 4, Release: func(obj any) error {
		ds := obj.(*dataset)
		if _, err := reg.DecRef(ds.dtype); err != nil {
			return err
		}
		_, err := reg.DecRef(ds.space)
		return err
	}}))

	_, err := reg.Register(hid.File, "f.h5")
	require.NoError(t, err)
	dt, err := reg.Register(hid.Datatype, "int32")
	require.NoError(t, err)
	sp, err := reg.Register(hid.Dataspace, "simple[10]")
	require.NoError(t, err)
	_, err = reg.IncRef(dt)
	require.NoError(t, err)
	_, err = reg.IncRef(sp)
	require.NoError(t, err)
	_, err = reg.Register(hid.Dataset, &dataset{dtype: dt, space: sp})
	require.NoError(t, err)
	_, err = reg.Register(hid.Attribute, "units")
	require.NoError(t, err)

	log, buf := testutil.NewLogger(t)
	rep := shutdown.Run(reg, shutdown.Options{Logger: log})

	want := &shutdown.Report{
		Rounds:   1,
		Released: 5,
		Closed:   []hid.Category{hid.Attribute, hid.Dataset, hid.Datatype, hid.Dataspace, hid.File},
	}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, rep.Clean())
	assert.Empty(t, reg.OpenCategories())
	assert.Equal(t, 1, types.Total())
	assert.Equal(t, 1, spaces.Total())
	assert.Equal(t, []any{"units", "f.h5"}, seen.Order(), "attributes go before files")
	assert.Equal(t, 1, testutil.CountRecords(t, buf, "shutdown: complete"))
}

func TestRun_MultipleUsersTakeSeveralRounds(t *testing.T) {
	reg := hid.New(hid.DefaultConfig())
	for range 3 {
		require.NoError(t, reg.Open(hid.File, hid.CategoryConfig{Buckets: 8}))
	}
	require.NoError(t, reg.Open(hid.Group, hid.CategoryConfig{Buckets: 8}))
	_, err := reg.Register(hid.File, "f")
	require.NoError(t, err)

	rep := shutdown.Run(reg, shutdown.Options{})
	want := &shutdown.Report{
		Rounds:   3,
		Released: 1,
		Closed:   []hid.Category{hid.Group, hid.File},
	}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_NothingOpen(t *testing.T) {
	rep := shutdown.Run(hid.New(hid.DefaultConfig()), shutdown.Options{})
	assert.Equal(t, 0, rep.Rounds)
	assert.True(t, rep.Clean())
	assert.Contains(t, rep.String(), "0 round(s)")
}

func TestRun_CustomOrderStillClosesEverything(t *testing.T) {
	reg := hid.New(hid.DefaultConfig())
	require.NoError(t, reg.Open(hid.File, hid.CategoryConfig{Buckets: 2}))
	require.NoError(t, reg.Open(hid.ErrorClass, hid.CategoryConfig{Buckets: 2}))
	require.NoError(t, reg.Open(hid.Dataset, hid.CategoryConfig{Buckets: 2}))

	rep := shutdown.Run(reg, shutdown.Options{Order: []hid.Category{hid.File}})
	assert.Equal(t, []hid.Category{hid.File, hid.Dataset, hid.ErrorClass}, rep.Closed)
	assert.True(t, rep.Clean())
}

func TestRun_GivesUpOnCategoryThatNeverDrains(t *testing.T) {
	reg := hid.New(hid.DefaultConfig())
	cfg := hid.CategoryConfig{Buckets: 2}
	// Every released group resurrects itself.
	cfg.Release = func(obj any) error {
		if err := reg.Open(hid.Group, cfg); err != nil {
			return err
		}
		_, err := reg.Register(hid.Group, obj)
		return err
	}
	require.NoError(t, reg.Open(hid.Group, cfg))
	require.NoError(t, reg.Open(hid.File, hid.CategoryConfig{Buckets: 2}))
	_, err := reg.Register(hid.Group, "zombie")
	require.NoError(t, err)

	log, buf := testutil.NewLogger(t)
	rep := shutdown.Run(reg, shutdown.Options{MaxRounds: 5, Logger: log})

	assert.Equal(t, 5, rep.Rounds)
	assert.False(t, rep.Clean())
	require.Len(t, rep.Undrained, 1)
	assert.Equal(t, hid.Group, rep.Undrained[0].Category)
	assert.GreaterOrEqual(t, rep.Undrained[0].Active, 1)
	assert.Equal(t, []hid.Category{hid.File}, rep.Closed)
	assert.Contains(t, rep.String(), "undrained group")
	assert.Equal(t, 1, testutil.CountRecords(t, buf, "shutdown: undrained category"))
}
