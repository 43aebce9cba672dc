package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFileMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	d, err := LoadDefaultsFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults{}, d)
}

func TestLoadDefaultsFileParsesYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases: /local:/remote\nuniqueness: contents\n"), 0o644))

	d, err := LoadDefaultsFile(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults{Aliases: "/local:/remote", Uniqueness: "contents"}, d)
}

func TestLoadDefaultsFileRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases: [unterminated\n"), 0o644))

	_, err := LoadDefaultsFile(path)
	assert.Error(t, err)
}
