package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
account: abc123
nodes: 2
memory-per-cpu: 4
nv: true
env-modules: cpu,anaconda3
`)

	opts, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", opts[OptAccount])
	assert.Equal(t, "2", opts[OptNodes])
	assert.Equal(t, "4", opts[OptMemoryPerCPU])
	assert.Equal(t, "true", opts[OptNV])
	assert.Equal(t, "cpu,anaconda3", opts[OptModules])
}

func TestLoadProfileRejectsNestedValues(t *testing.T) {
	path := writeProfile(t, "account:\n  nested: true\n")

	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadProfileUnknownKeySurfacesInResolve(t *testing.T) {
	path := writeProfile(t, "walltime: 10\n")

	opts, err := LoadProfile(path)
	require.NoError(t, err)

	_, err = Resolve(opts, testConfig())
	assert.Error(t, err)
}
