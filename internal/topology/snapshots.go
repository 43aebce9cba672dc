package topology

import (
	"context"
	"os"
	"path/filepath"

	"github.com/httm-go/httm/internal/btrfsexec"
	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
)

// snapperDir is where btrfs-snapper keeps its numbered snapshot
// subvolumes, each exposing the dataset's historical state under
// <snapperDir>/<n>/snapshot.
const snapperDir = ".snapshots"

// Indexer builds the snapshot root sequence for a mount. ZFS enumerates the
// hidden .zfs/snapshot directory directly; btrfs shells out to `btrfs
// subvolume list` and also checks for a snapper layout.
type Indexer struct {
	BtrfsRunner btrfsexec.Runner
}

// NewIndexer returns an Indexer using the real btrfs binary.
func NewIndexer() *Indexer {
	return &Indexer{BtrfsRunner: btrfsexec.Exec{}}
}

// SnapMounts implements the Snapshot Indexer contract: snap_mounts(mount) →
// [path]. Order is the enumeration order and is not semantically
// significant, but is stable given a stable directory/command order.
func (ix *Indexer) SnapMounts(ctx context.Context, m model.MountRecord) ([]string, error) {
	switch m.FilesystemType {
	case model.ZFS:
		return ix.zfsSnapMounts(m)
	case model.Btrfs:
		return ix.btrfsSnapMounts(ctx, m)
	default:
		return nil, nil
	}
}

// zfsSnapMounts enumerates mount/.zfs/snapshot/, each entry a snapshot
// root.
func (ix *Indexer) zfsSnapMounts(m model.MountRecord) ([]string, error) {
	dir := filepath.Join(m.MountPoint, zfsHiddenSnapDir, "snapshot")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, model.NewExternalProcessError(i18n.G("couldn't list zfs snapshot directory"), err)
	}
	var roots []string
	for _, e := range entries {
		roots = append(roots, filepath.Join(dir, e.Name()))
	}
	return roots, nil
}

// btrfsSnapMounts invokes `btrfs subvolume list -a -s <mount>` and joins
// each entry's `path <x>` token under the input mount. For <FS_TREE>/-rooted
// paths the marker is stripped and the rest is joined under the input mount
// as well; the mount whose subvolume is "/" is not looked up. It also folds
// in a snapper layout under .snapshots/*/snapshot when present. Non-existent
// targets are dropped.
func (ix *Indexer) btrfsSnapMounts(ctx context.Context, m model.MountRecord) ([]string, error) {
	var roots []string

	subvols, err := btrfsexec.List(ctx, ix.BtrfsRunner, m.MountPoint)
	if err != nil {
		log.Debugf(ctx, i18n.G("snapshot indexer: btrfs subvolume list failed for %q: %v"), m.MountPoint, err)
	}
	for _, sv := range subvols {
		var target string
		if rel, rooted := sv.RootRelative(); rooted {
			target = filepath.Join(m.MountPoint, rel)
		} else {
			target = filepath.Join(m.MountPoint, sv.Path)
		}
		if target == m.MountPoint {
			continue
		}
		if _, err := os.Stat(target); err != nil {
			continue
		}
		roots = append(roots, target)
	}

	snapperRoot := filepath.Join(m.MountPoint, snapperDir)
	entries, err := os.ReadDir(snapperRoot)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			snap := filepath.Join(snapperRoot, e.Name(), "snapshot")
			if _, err := os.Stat(snap); err != nil {
				continue
			}
			roots = append(roots, snap)
		}
	}

	return roots, nil
}

// BuildIndex runs SnapMounts for every mount, assembling the process-wide
// SnapshotIndex.
func (ix *Indexer) BuildIndex(ctx context.Context, mounts []model.MountRecord) (model.SnapshotIndex, error) {
	idx := make(model.SnapshotIndex, len(mounts))
	for _, m := range mounts {
		roots, err := ix.SnapMounts(ctx, m)
		if err != nil {
			return nil, err
		}
		idx[m.MountPoint] = roots
	}
	return idx, nil
}
