// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecreateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "augmented")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "healthy"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "healthy", "healthy_0.jpg"), []byte("x"), 0644))

	require.NoError(t, RecreateDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Error(t, RecreateDir("/"))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, MustFileExists(dir))
	assert.False(t, MustFileExists(filepath.Join(dir, "missing")))
}

func TestReplaceTildeInDir(t *testing.T) {
	got, err := ReplaceTildeInDir("/tmp/data")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", got)

	usr, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	got, err = ReplaceTildeInDir("~/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "data"), got)
}

func TestHasExtension(t *testing.T) {
	exts := []string{".jpg", ".png"}
	assert.True(t, HasExtension("leaf.JPG", exts))
	assert.True(t, HasExtension("leaf.png", exts))
	assert.False(t, HasExtension("notes.txt", exts))
	assert.False(t, HasExtension("README", exts))
}
