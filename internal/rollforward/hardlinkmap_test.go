package rollforward

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHardLinkMapGroupsByInode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x"), []byte("hi"), 0o644))
	require.NoError(t, os.Link(filepath.Join(root, "x"), filepath.Join(root, "y")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "solo"), []byte("solo"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "z"), []byte("z"), 0o644))

	hlm, err := BuildHardLinkMap(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, hlm.Remainder[filepath.Join(root, "solo")])
	assert.True(t, hlm.Remainder[filepath.Join(root, "sub", "z")])

	var linked []string
	for _, paths := range hlm.LinkMap {
		linked = append(linked, paths...)
	}
	assert.ElementsMatch(t, []string{filepath.Join(root, "x"), filepath.Join(root, "y")}, linked)
}

func TestBuildHardLinkMapSkipsUnreadableDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	blocked := filepath.Join(root, "blocked")
	require.NoError(t, os.Mkdir(blocked, 0o000))
	defer os.Chmod(blocked, 0o755)

	_, err := BuildHardLinkMap(context.Background(), root)
	assert.NoError(t, err)
}
