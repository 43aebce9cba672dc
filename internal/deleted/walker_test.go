package deleted

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httm-go/httm/internal/model"
)

func buildFixture(t *testing.T) (live, snap string, fi *model.FilesystemInfo) {
	t.Helper()
	live = t.TempDir()
	snap = t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(live, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "gone.txt"), []byte("gone"), 0o644))

	fi = &model.FilesystemInfo{
		Mounts:    []model.MountRecord{{MountPoint: live, FilesystemType: model.ZFS}},
		Snapshots: model.SnapshotIndex{live: {snap}},
		Aliases:   model.AliasMap{},
	}
	return live, snap, fi
}

// TestWalkOnlyModeFindsExactlyOnePhantom exercises end-to-end scenario 2:
// snapshot s1 contains gone.txt; live does not. A recursive walk with
// DeletedMode=Only should yield exactly one phantom for gone.txt.
func TestWalkOnlyModeFindsExactlyOnePhantom(t *testing.T) {
	t.Parallel()
	live, _, fi := buildFixture(t)

	ch, err := Walk(context.Background(), fi, live, Options{Mode: Only})
	require.NoError(t, err)

	var phantoms []model.PathDescriptor
	for dr := range ch {
		for _, d := range dr.Entries {
			if d.IsPhantom() {
				phantoms = append(phantoms, d)
			}
		}
	}

	require.Len(t, phantoms, 1)
	assert.Equal(t, filepath.Join(live, "gone.txt"), phantoms[0].Path)
}

func TestWalkDepthOfOneDropsNestedPhantoms(t *testing.T) {
	t.Parallel()
	live, snap, fi := buildFixture(t)

	require.NoError(t, os.Mkdir(filepath.Join(snap, "deadsub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "deadsub", "inner.txt"), []byte("x"), 0o644))

	ch, err := Walk(context.Background(), fi, live, Options{Mode: DepthOfOne})
	require.NoError(t, err)

	var names []string
	for dr := range ch {
		for _, d := range dr.Entries {
			if d.IsPhantom() {
				names = append(names, filepath.Base(d.Path))
			}
		}
	}

	assert.Contains(t, names, "deadsub")
	assert.NotContains(t, names, "inner.txt")
}

func TestWalkModeAllRecursesIntoPhantomSubtree(t *testing.T) {
	t.Parallel()
	live, snap, fi := buildFixture(t)

	require.NoError(t, os.Mkdir(filepath.Join(snap, "deadsub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "deadsub", "inner.txt"), []byte("x"), 0o644))

	ch, err := Walk(context.Background(), fi, live, Options{Mode: All})
	require.NoError(t, err)

	var names []string
	for dr := range ch {
		for _, d := range dr.Entries {
			if d.IsPhantom() {
				names = append(names, filepath.Base(d.Path))
			}
		}
	}

	assert.Contains(t, names, "deadsub")
	assert.Contains(t, names, "inner.txt")
}

func TestWalkRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	live, _, fi := buildFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := Walk(ctx, fi, live, Options{Mode: Only, ChannelSize: 1})
	require.NoError(t, err)

	for range ch {
	}
}
