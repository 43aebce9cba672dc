package model

import (
	"path/filepath"
	"strings"
)

// FilesystemType classifies a mount as reported by the kernel mount table.
type FilesystemType int

const (
	// Other is any filesystem type this system does not snapshot-index.
	Other FilesystemType = iota
	// ZFS is a zfs dataset mount.
	ZFS
	// Btrfs is a btrfs subvolume mount.
	Btrfs
)

func (t FilesystemType) String() string {
	switch t {
	case ZFS:
		return "zfs"
	case Btrfs:
		return "btrfs"
	default:
		return "other"
	}
}

// MountRecord describes one live mount point, unique on MountPoint.
type MountRecord struct {
	MountPoint     string
	Source         string
	FilesystemType FilesystemType
}

// SnapshotIndex maps a mount point to the ordered sequence of snapshot-root
// directories that mirror it. Built once; read-only thereafter.
type SnapshotIndex map[string][]string

// AliasMap maps a canonicalized local directory to a canonicalized remote
// directory. Applied by the Path Resolver before any proximate-dataset
// lookup, never after.
type AliasMap map[string]string

// Rewrite applies the alias map to path: if path is under some local_dir, it
// is rewritten to remote_dir/relative. Otherwise path is returned unchanged.
func (a AliasMap) Rewrite(path string) string {
	var bestLocal string
	for local := range a {
		if !isAncestor(local, path) {
			continue
		}
		if len(local) > len(bestLocal) {
			bestLocal = local
		}
	}
	if bestLocal == "" {
		return path
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(path, bestLocal), string(filepath.Separator))
	return filepath.Join(a[bestLocal], rel)
}

// isAncestor reports whether ancestor is path itself or a path component
// prefix of path.
func isAncestor(ancestor, path string) bool {
	ancestor = filepath.Clean(ancestor)
	path = filepath.Clean(path)
	if ancestor == path {
		return true
	}
	return strings.HasPrefix(path, ancestor+string(filepath.Separator))
}

// AltReplicated is the set of mounts (including the query mount itself) that
// share the filesystem type of a query mount and contain the same relative
// subpath — discovered lazily per query.
type AltReplicated []MountRecord

// FilesystemInfo is the immutable, process-wide topology object built once
// at startup: mounts, their snapshot indexes, and the alias map that
// rewrites query paths. Safe for unsynchronized concurrent reads.
type FilesystemInfo struct {
	Mounts       []MountRecord
	Snapshots    SnapshotIndex
	Aliases      AliasMap
	CommonSnapDir string
	FilterDirs   []string
}

// ProximateMount returns the mount whose mount point is the longest ancestor
// of path (ties broken by longer path — which, for mount points, is the same
// condition).
func (fi *FilesystemInfo) ProximateMount(path string) (MountRecord, bool) {
	path = filepath.Clean(path)
	var best MountRecord
	found := false
	for _, m := range fi.Mounts {
		if !isAncestor(m.MountPoint, path) {
			continue
		}
		if !found || len(m.MountPoint) > len(best.MountPoint) {
			best = m
			found = true
		}
	}
	return best, found
}

// AltReplicatedFor returns the search set of mounts sharing m's filesystem
// type and containing relative subpath rel, always including m itself.
func (fi *FilesystemInfo) AltReplicatedFor(m MountRecord, rel string, existsFn func(string) bool) AltReplicated {
	set := AltReplicated{m}
	for _, other := range fi.Mounts {
		if other.MountPoint == m.MountPoint {
			continue
		}
		if other.FilesystemType != m.FilesystemType {
			continue
		}
		if existsFn(filepath.Join(other.MountPoint, rel)) {
			set = append(set, other)
		}
	}
	return set
}
