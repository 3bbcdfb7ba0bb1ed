package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hidkit/hid"
)

func TestLayoutCommand(t *testing.T) {
	resetFlags()
	output, err := captureOutput(t, runLayout)
	require.NoError(t, err)
	assertContains(t, output, []string{"Index limit: 16,777,215", "Shutdown rounds: 100", "CATEGORY", "datatype", "errorstack"})
}

func TestLayoutCommand_ConfigJSON(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "hid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shutdown_rounds: 3\ncategories:\n  group:\n    buckets: 128\n"), 0644))
	layoutConfig = path
	jsonOut = true

	output, err := captureOutput(t, runLayout)
	require.NoError(t, err)

	var rep layoutReport
	require.NoError(t, json.Unmarshal([]byte(output), &rep))
	assert.Equal(t, 3, rep.ShutdownRounds)
	require.Len(t, rep.Categories, len(hid.Categories()))
	for _, row := range rep.Categories {
		if row.Category == hid.Group {
			assert.Equal(t, 128, row.Buckets)
		}
	}
}

func TestLayoutCommand_BadConfig(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "hid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  group:\n    buckets: 3\n"), 0644))
	layoutConfig = path

	_, err := captureOutput(t, runLayout)
	require.ErrorIs(t, err, hid.ErrInvalidBucketCount)
}

func TestRootCommand_Quiet(t *testing.T) {
	resetFlags()
	quiet = true
	output, err := captureOutput(t, runLayout)
	require.NoError(t, err)
	assert.Empty(t, output)
}
