package versions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/httm-go/httm/internal/model"
)

func buildFixture(t *testing.T, liveContent string) (live string, fi *model.FilesystemInfo) {
	t.Helper()
	live = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(live, "dir"), 0o755))

	fi = &model.FilesystemInfo{
		Mounts:    []model.MountRecord{{MountPoint: live, FilesystemType: model.ZFS}},
		Snapshots: model.SnapshotIndex{live: nil},
		Aliases:   model.AliasMap{},
	}

	require.NoError(t, os.WriteFile(filepath.Join(live, "dir", "f.txt"), []byte(liveContent), 0o644))
	return live, fi
}

func addSnapshot(t *testing.T, fi *model.FilesystemInfo, live, content string, mtime time.Time) string {
	t.Helper()
	snap := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(snap, "dir"), 0o755))
	path := filepath.Join(snap, "dir", "f.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	fi.Snapshots[live] = append(fi.Snapshots[live], snap)
	return snap
}

func pathsOf(descriptors []model.PathDescriptor) []string {
	var out []string
	for _, d := range descriptors {
		out = append(out, d.Path)
	}
	return out
}

func TestVersionsUniqueMetadataCollapsesIdenticalSnapshotEntries(t *testing.T) {
	t.Parallel()
	live, fi := buildFixture(t, "live")

	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s1 := addSnapshot(t, fi, live, "same", mtime)
	addSnapshot(t, fi, live, "same", mtime)

	got, err := Versions(context.Background(), fi, filepath.Join(live, "dir", "f.txt"), Options{Policy: UniqueMetadata})
	require.NoError(t, err)

	want := []string{filepath.Join(s1, "dir", "f.txt"), filepath.Join(live, "dir", "f.txt")}
	if diff := cmp.Diff(want, pathsOf(got)); diff != "" {
		t.Errorf("unexpected version set (-want +got):\n%s", diff)
	}
}

func TestVersionsAllPolicyKeepsEveryCandidate(t *testing.T) {
	t.Parallel()
	live, fi := buildFixture(t, "live")

	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	addSnapshot(t, fi, live, "same", mtime)
	addSnapshot(t, fi, live, "same", mtime)

	got, err := Versions(context.Background(), fi, filepath.Join(live, "dir", "f.txt"), Options{Policy: All})
	require.NoError(t, err)

	// two identical snapshot candidates plus the live entry, none collapsed
	require.Len(t, got, 3)
}

func TestVersionsUniqueContentsCollapsesDifferentMtimeSameBytes(t *testing.T) {
	t.Parallel()
	live, fi := buildFixture(t, "live")

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s1 := addSnapshot(t, fi, live, "identical bytes", older)
	addSnapshot(t, fi, live, "identical bytes", newer)

	got, err := Versions(context.Background(), fi, filepath.Join(live, "dir", "f.txt"), Options{Policy: UniqueContents})
	require.NoError(t, err)

	// same size, same bytes -> one canonical entry (the first one seen, s1) plus live
	want := []string{filepath.Join(s1, "dir", "f.txt"), filepath.Join(live, "dir", "f.txt")}
	if diff := cmp.Diff(want, pathsOf(got)); diff != "" {
		t.Errorf("unexpected version set (-want +got):\n%s", diff)
	}
}

func TestVersionsOmitDittoDropsSnapshotMatchingLive(t *testing.T) {
	t.Parallel()
	live, fi := buildFixture(t, "live content")

	liveInfo, err := os.Lstat(filepath.Join(live, "dir", "f.txt"))
	require.NoError(t, err)

	addSnapshot(t, fi, live, "live content", liveInfo.ModTime())

	got, err := Versions(context.Background(), fi, filepath.Join(live, "dir", "f.txt"), Options{Policy: UniqueMetadata, OmitDitto: true})
	require.NoError(t, err)

	want := []string{filepath.Join(live, "dir", "f.txt")}
	if diff := cmp.Diff(want, pathsOf(got)); diff != "" {
		t.Errorf("unexpected version set (-want +got):\n%s", diff)
	}
}

func TestSelectNewestPicksMostRecentModifyTime(t *testing.T) {
	t.Parallel()
	live, fi := buildFixture(t, "live")

	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	addSnapshot(t, fi, live, "old", older)
	s2 := addSnapshot(t, fi, live, "new", newer)

	descriptors, err := Versions(context.Background(), fi, filepath.Join(live, "dir", "f.txt"), Options{Policy: All})
	require.NoError(t, err)

	// Exclude the live entry so SelectNewest is exercised purely over
	// snapshot-side candidates.
	var snapOnly []model.PathDescriptor
	for _, d := range descriptors {
		if d.Path != filepath.Join(live, "dir", "f.txt") {
			snapOnly = append(snapOnly, d)
		}
	}

	newest, ok := SelectNewest(snapOnly)
	require.True(t, ok)
	require.Equal(t, filepath.Join(s2, "dir", "f.txt"), newest.Path)
}

func TestSelectNewestReportsFalseOnAllPhantoms(t *testing.T) {
	t.Parallel()
	_, ok := SelectNewest([]model.PathDescriptor{model.NewPhantomDescriptor("/tank/gone")})
	require.False(t, ok)
}
