package rollforward

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httm-go/httm/internal/model"
)

func TestChoosePreservationOriginalPrefersExistingLivePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	original, rest := choosePreservationOriginal([]string{a, b}, map[string]bool{a: true})
	assert.Equal(t, a, original)
	assert.ElementsMatch(t, []string{a, b}, rest)
}

func TestChoosePreservationOriginalFallsBackToFirstWhenNoneLive(t *testing.T) {
	t.Parallel()

	original, _ := choosePreservationOriginal([]string{"/tank/a", "/tank/b"}, map[string]bool{})
	assert.Equal(t, "/tank/a", original)
}

func TestPathDepthOrdersDeepestFirst(t *testing.T) {
	t.Parallel()

	assert.Greater(t, pathDepth("/a/b/c"), pathDepth("/a/b"))
}

// TestRollForwardRenameScenario exercises end-to-end scenario 4: the
// snapshot contains only "b"; live contains only "a" with identical
// content. The orphan-diff stage (reconcileHardLinks) removes the
// live-only "a" and copies the snap-only "b"; a synthetic Renamed(a -> b)
// diff event then copies "b" from the snapshot again and, with no "a" in
// the snapshot, leaves "a" absent.
func TestRollForwardRenameScenario(t *testing.T) {
	t.Parallel()

	live := t.TempDir()
	snap := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(live, "a"), []byte("original"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "b"), []byte("original"), 0o644))

	opts := Options{LiveRoot: live, SnapRoot: snap}

	liveMap, err := BuildHardLinkMap(context.Background(), live)
	require.NoError(t, err)
	snapMap, err := BuildHardLinkMap(context.Background(), snap)
	require.NoError(t, err)

	_, err = reconcileHardLinks(context.Background(), opts, liveMap, snapMap)
	require.NoError(t, err)

	event := model.DiffEvent{
		Kind:    model.Renamed,
		Path:    filepath.Join(live, "a"),
		NewPath: filepath.Join(live, "b"),
	}
	require.NoError(t, applyDiffEvent(context.Background(), opts, event))

	_, err = os.Lstat(filepath.Join(live, "a"))
	assert.True(t, os.IsNotExist(err))
	got, err := os.ReadFile(filepath.Join(live, "b"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

// TestReconcileHardLinksPreservesUnchangedLinkGroup guards against a group
// whose pair is identical on both sides: live has "a" and "b" linked to one
// inode, and the target snapshot has the same unchanged pair. Reconciling
// must not fail, and "a"/"b" must still share an inode afterward — the
// chosen original is never actually missing from live.
func TestReconcileHardLinksPreservesUnchangedLinkGroup(t *testing.T) {
	t.Parallel()

	live := t.TempDir()
	snap := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(live, "a"), []byte("linked"), 0o644))
	require.NoError(t, os.Link(filepath.Join(live, "a"), filepath.Join(live, "b")))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "a"), []byte("linked"), 0o644))
	require.NoError(t, os.Link(filepath.Join(snap, "a"), filepath.Join(snap, "b")))

	opts := Options{LiveRoot: live, SnapRoot: snap}

	liveMap, err := BuildHardLinkMap(context.Background(), live)
	require.NoError(t, err)
	snapMap, err := BuildHardLinkMap(context.Background(), snap)
	require.NoError(t, err)

	_, err = reconcileHardLinks(context.Background(), opts, liveMap, snapMap)
	require.NoError(t, err)

	aInfo, err := os.Stat(filepath.Join(live, "a"))
	require.NoError(t, err)
	bInfo, err := os.Stat(filepath.Join(live, "b"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(aInfo, bInfo))
}

// TestReconcileHardLinksRestoresMissingLink exercises end-to-end scenario
// 5: the snapshot has "x" and "y" as two links to one inode; live has only
// "x". After reconciliation, live has both "x" and "y" sharing an inode.
func TestReconcileHardLinksRestoresMissingLink(t *testing.T) {
	t.Parallel()

	live := t.TempDir()
	snap := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(live, "x"), []byte("linked"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "x"), []byte("linked"), 0o644))
	require.NoError(t, os.Link(filepath.Join(snap, "x"), filepath.Join(snap, "y")))

	opts := Options{LiveRoot: live, SnapRoot: snap}

	liveMap, err := BuildHardLinkMap(context.Background(), live)
	require.NoError(t, err)
	snapMap, err := BuildHardLinkMap(context.Background(), snap)
	require.NoError(t, err)

	_, err = reconcileHardLinks(context.Background(), opts, liveMap, snapMap)
	require.NoError(t, err)

	xInfo, err := os.Stat(filepath.Join(live, "x"))
	require.NoError(t, err)
	yInfo, err := os.Stat(filepath.Join(live, "y"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(xInfo, yInfo))
}
