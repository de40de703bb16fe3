package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, name+".sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env bash\n"), 0o700))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestListEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()

	infos, err := List(dir)
	require.NoError(t, err)
	assert.Empty(t, infos)

	infos, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "galyleo-old", 48*time.Hour)
	writeScript(t, dir, "galyleo-new", time.Hour)

	infos, err := List(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "galyleo-new", infos[0].Name)
	assert.Equal(t, "galyleo-old", infos[1].Name)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "galyleo-x", time.Hour)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600))

	infos, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestCleanRetention(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "galyleo-old", 10*24*time.Hour)
	fresh := writeScript(t, dir, "galyleo-new", time.Hour)

	removed, err := Clean(dir, 7*24*time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"galyleo-old"}, removed)
	assert.FileExists(t, fresh)
}

func TestCleanAll(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "galyleo-a", time.Hour)
	writeScript(t, dir, "galyleo-b", time.Minute)

	removed, err := Clean(dir, 7*24*time.Hour, true)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	infos, err := List(dir)
	require.NoError(t, err)
	assert.Empty(t, infos)
}
