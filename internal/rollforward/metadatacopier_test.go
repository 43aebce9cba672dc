package rollforward

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyDirectRegularFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "out", "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello world"), 0o644))

	require.NoError(t, CopyDirect(context.Background(), src, dst, false, root))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestCopyDirectSkipsIdenticalBlocks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "src.bin")
	dst := filepath.Join(root, "dst.bin")
	content := make([]byte, blockSize+100)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(src, content, 0o644))
	require.NoError(t, os.WriteFile(dst, content, 0o644))

	preStat, err := os.Stat(dst)
	require.NoError(t, err)

	require.NoError(t, CopyDirect(context.Background(), src, dst, false, root))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	postStat, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, preStat.Size(), postStat.Size())
}

func TestCopyDirectDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "srcdir")
	dst := filepath.Join(root, "dstdir", "nested")
	require.NoError(t, os.Mkdir(src, 0o755))

	require.NoError(t, CopyDirect(context.Background(), src, dst, false, root))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopyDirectSymlink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	src := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, src))
	dst := filepath.Join(root, "out", "link")

	require.NoError(t, CopyDirect(context.Background(), src, dst, false, root))

	got, err := os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}
