// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedConverter(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.csv", "name\nA\n")
	inner := &fakeConverter{warn: map[string]bool{"a.csv": true}}
	c := NewCachedConverter(inner, time.Minute)

	first, err := c.Convert(path)
	require.NoError(t, err)
	second, err := c.Convert(path)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.callCount())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.Len())

	// Returned results are copies.
	second.Validation.Issues[0] = "changed"
	third, err := c.Convert(path)
	require.NoError(t, err)
	assert.Equal(t, "Coverage nur 50% – manuell prüfen", third.Validation.Issues[0])

	// A modified file misses the cache.
	require.NoError(t, os.WriteFile(path, []byte("name\nA\nB\n"), 0o644))
	_, err = c.Convert(path)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCachedConverterErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "x")
	inner := &fakeConverter{fail: map[string]bool{"bad.csv": true}}
	c := NewCachedConverter(inner, time.Minute)

	_, err := c.Convert(path)
	require.Error(t, err)
	_, err = c.Convert(path)
	require.Error(t, err)
	assert.Equal(t, 2, inner.callCount(), "failures are not cached")
	assert.Equal(t, 0, c.Len())

	_, err = c.Convert(filepath.Join(dir, "missing.csv"))
	assert.True(t, os.IsNotExist(err))
}
