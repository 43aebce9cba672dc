// Package pathresolve implements the Path Resolver (4.D): translating a
// live query path into its proximate dataset, relative path, and the
// candidate snapshot mounts that may hold historical versions of it.
package pathresolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/model"
)

// Resolved is the Path Resolver's output: resolve(query_path) →
// (proximate_mount, relative_path, [snapshot_mounts]).
type Resolved struct {
	ProximateMount model.MountRecord
	RelativePath   string
	SnapshotMounts []string
}

// Options configures Resolve.
type Options struct {
	// AltReplicated widens the search set to every mount sharing the
	// proximate mount's filesystem type and containing the same relative
	// subpath, instead of just the proximate mount's own snapshots.
	AltReplicated bool
}

// Resolve implements the Path Resolver contract. It canonicalizes
// query_path, applies the AliasMap (never after the proximate-dataset
// lookup), finds the proximate mount by longest-ancestor match, computes
// the relative path, and looks up snapshot mounts via the Snapshot
// Indexer's precomputed SnapshotIndex — possibly widened by
// Alt-Replicated discovery.
func Resolve(fi *model.FilesystemInfo, queryPath string, opts Options) (Resolved, error) {
	abs, err := filepath.Abs(queryPath)
	if err != nil {
		return Resolved{}, model.NewResolutionError(i18n.G("couldn't make %q absolute: %v"), queryPath, err)
	}
	canonical := canonicalizeBestEffort(abs)

	// AliasMap is applied before any proximate-dataset lookup, never after.
	rewritten := fi.Aliases.Rewrite(canonical)

	mount, ok := fi.ProximateMount(rewritten)
	if !ok {
		return Resolved{}, model.NewResolutionError(i18n.G("%q is not under any known zfs or btrfs dataset"), queryPath)
	}

	rel := strings.TrimPrefix(strings.TrimPrefix(rewritten, mount.MountPoint), string(filepath.Separator))

	searchMounts := []model.MountRecord{mount}
	if opts.AltReplicated {
		searchMounts = fi.AltReplicatedFor(mount, rel, pathExists)
	}

	var snapMounts []string
	for _, m := range searchMounts {
		snapMounts = append(snapMounts, fi.Snapshots[m.MountPoint]...)
	}

	return Resolved{
		ProximateMount: mount,
		RelativePath:   rel,
		SnapshotMounts: snapMounts,
	}, nil
}

// canonicalizeBestEffort resolves symlinks where possible; a path (or a
// not-yet-existing suffix of it) that can't be resolved is used verbatim,
// since queries may legitimately target deleted files.
func canonicalizeBestEffort(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	// Walk up to the first existing ancestor and resolve that prefix only.
	dir := filepath.Dir(abs)
	for dir != string(filepath.Separator) && dir != "." {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, strings.TrimPrefix(abs, dir))
		}
		dir = filepath.Dir(dir)
	}
	return filepath.Clean(abs)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
