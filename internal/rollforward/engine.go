package rollforward

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/zfsexec"
)

// Options configures RollForward.
type Options struct {
	// LiveRoot is the mount point of the dataset being reconciled.
	LiveRoot string
	// SnapRoot is the read-only directory mirroring the dataset at the
	// target snapshot, e.g. "<mount>/.zfs/snapshot/<name>".
	SnapRoot string
}

// RollForward implements the Roll-Forward Engine contract: it makes
// LiveRoot byte/metadata-equivalent to SnapRoot, or fails atomically by
// rolling back to a pre-guard snapshot it takes itself.
func RollForward(ctx context.Context, r zfsexec.Runner, dataset, snapName string, opts Options) (err error) {
	guard, err := AcquireGuard(ctx, r, dataset, PreRollForward, "")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			log.Warningf(ctx, i18n.G("roll-forward failed, rolling back to guard %s@%s: %v"), dataset, guard.SnapshotName, err)
			if rbErr := guard.Rollback(ctx); rbErr != nil {
				log.Warningf(ctx, i18n.G("rollback itself failed: %v"), rbErr)
			}
		}
	}()

	var liveMap, snapMap *model.HardLinkMap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var buildErr error
		liveMap, buildErr = BuildHardLinkMap(gctx, opts.LiveRoot)
		return buildErr
	})
	g.Go(func() error {
		var buildErr error
		snapMap, buildErr = BuildHardLinkMap(gctx, opts.SnapRoot)
		return buildErr
	})
	if err = g.Wait(); err != nil {
		return err
	}

	ingested, err := Ingest(ctx, r, dataset+"@"+snapName)
	if err != nil {
		return err
	}
	if ingested.ParseError != nil {
		log.Warningf(ctx, i18n.G("zfs diff produced %d unparseable line(s)"), len(ingested.ParseError.Lines))
	}
	events := model.CollapseByPath(ingested.Events)

	exclusions, err := reconcileHardLinks(ctx, opts, liveMap, snapMap)
	if err != nil {
		return err
	}

	sort.Slice(events, func(i, j int) bool {
		return pathDepth(events[i].Path) > pathDepth(events[j].Path)
	})

	for _, e := range events {
		if exclusions[e.Path] {
			continue
		}
		if err = applyDiffEvent(ctx, opts, e); err != nil {
			return err
		}
	}

	if err = verify(ctx, opts); err != nil {
		return err
	}

	if _, postErr := AcquireGuard(ctx, r, dataset, PostRollForward, snapName); postErr != nil {
		log.Warningf(ctx, i18n.G("couldn't acquire post-roll-forward guard: %v"), postErr)
	}

	return nil
}

func pathDepth(p string) int {
	return strings.Count(filepath.Clean(p), string(filepath.Separator))
}

func translate(path, fromRoot, toRoot string) string {
	rel := strings.TrimPrefix(path, fromRoot)
	return filepath.Join(toRoot, rel)
}

// reconcileHardLinks implements step 4 of the Roll-Forward Engine
// protocol: it computes the exclusion set of paths the link-preservation
// stage handles itself, applying its mutations as a side effect so the
// caller's later diff-application pass never double-applies them.
func reconcileHardLinks(ctx context.Context, opts Options, live, snap *model.HardLinkMap) (map[string]bool, error) {
	exclusions := make(map[string]bool)

	snapRemainderTranslated := make(map[string]bool, len(snap.Remainder))
	for p := range snap.Remainder {
		snapRemainderTranslated[translate(p, opts.SnapRoot, opts.LiveRoot)] = true
	}

	// Intersection removal and link preservation both need the snap-side
	// groups translated to live paths, and a flat set of every path the
	// snapshot knows about (remainder or linked) — computed up front so
	// the orphan-diff pass below never mistakes a path that merely moved
	// from snap_remainder into a snap link group (or vice versa) for a
	// genuine live-only orphan.
	snapLinkGroupsTranslated := make(map[uint64][]string, len(snap.LinkMap))
	snapKnownTranslated := make(map[string]bool, len(snap.Remainder)+len(snap.LinkMap)*2)
	for p := range snapRemainderTranslated {
		snapKnownTranslated[p] = true
	}
	for ino, paths := range snap.LinkMap {
		for _, p := range paths {
			translated := translate(p, opts.SnapRoot, opts.LiveRoot)
			snapLinkGroupsTranslated[ino] = append(snapLinkGroupsTranslated[ino], translated)
			snapKnownTranslated[translated] = true
		}
	}

	// Orphan diff: live-only orphans are removed, snap-only orphans are
	// copied to live.
	for p := range live.Remainder {
		if snapKnownTranslated[p] {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Debugf(ctx, i18n.G("couldn't remove live orphan %q: %v"), p, err)
		}
		exclusions[p] = true
	}
	for translated := range snapRemainderTranslated {
		if live.Remainder[translated] {
			continue
		}
		src := translate(translated, opts.LiveRoot, opts.SnapRoot)
		if err := CopyDirect(ctx, src, translated, true, opts.LiveRoot); err != nil {
			return nil, err
		}
		exclusions[translated] = true
	}

	livePathSet := make(map[string]bool)
	for _, paths := range live.LinkMap {
		for _, p := range paths {
			livePathSet[p] = true
		}
	}
	for p := range live.Remainder {
		livePathSet[p] = true
	}

	// Snap link preservation picks its original against the live state as
	// it stands right now, before any removal below: once a path is
	// chosen as a group's original it must survive the removal pass below
	// untouched, or it would have to be needlessly recopied from snap.
	type group struct {
		original string
		rest     []string
	}
	groups := make(map[uint64]group, len(snapLinkGroupsTranslated))
	preserveOnLive := make(map[string]bool, len(snapLinkGroupsTranslated))
	for ino, translatedPaths := range snapLinkGroupsTranslated {
		original, rest := choosePreservationOriginal(translatedPaths, livePathSet)
		if original == "" {
			continue
		}
		groups[ino] = group{original: original, rest: rest}
		preserveOnLive[original] = true
	}

	for _, paths := range live.LinkMap {
		for _, p := range paths {
			// A group's chosen original is kept in place; every other
			// path is removed unconditionally, since it is either
			// recreated by link-preservation below or has simply lost
			// its link.
			if preserveOnLive[p] {
				continue
			}
			_ = os.Remove(p)
			exclusions[p] = true
		}
	}

	// Snap link preservation: within each snap-side inode group, the
	// oldest-by-create-time path already present on live becomes the
	// original; every other path in the group is hard-linked to it. If no
	// original survives, the first candidate is copied and the rest link
	// to it.
	for _, g := range groups {
		original, rest := g.original, g.rest
		origSrc := translate(original, opts.LiveRoot, opts.SnapRoot)
		if _, err := os.Lstat(original); err != nil {
			if err := CopyDirect(ctx, origSrc, original, true, opts.LiveRoot); err != nil {
				return nil, err
			}
		}
		for _, p := range rest {
			if p == original {
				continue
			}
			_ = os.Remove(p)
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return nil, model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't create parent of %q"), filepath.Dir(p)), err)
			}
			if err := os.Link(original, p); err != nil {
				return nil, model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't hard-link %q to %q"), original, p), err)
			}
			exclusions[p] = true
		}
		exclusions[original] = true
	}

	return exclusions, nil
}

// choosePreservationOriginal picks the oldest-by-create-time candidate
// that already exists on live as the preservation original; if none
// exists, the first candidate (stable order) stands in as the copy
// target.
func choosePreservationOriginal(candidates []string, livePathSet map[string]bool) (string, []string) {
	if len(candidates) == 0 {
		return "", nil
	}
	sorted := append([]string(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		ti, oki := changeTime(sorted[i])
		tj, okj := changeTime(sorted[j])
		if oki && okj {
			return ti < tj
		}
		return sorted[i] < sorted[j]
	})

	for _, c := range sorted {
		if livePathSet[c] {
			return c, sorted
		}
	}
	return sorted[0], sorted
}

// changeTime returns path's st_ctim in nanoseconds, used as a stand-in for
// create-time: Linux exposes no portable birth time, and status-change
// time is the closest available approximation for the oldest-candidate
// tie-break the link-preservation stage needs.
func changeTime(path string) (int64, bool) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, false
	}
	return st.Ctim.Nano(), true
}

// applyDiffEvent applies one collapsed DiffEvent per the Roll-Forward
// Engine's step 5 rules. `zfs diff` reports paths rooted at the live
// dataset; the snapshot-side counterpart is derived by re-rooting under
// SnapRoot.
func applyDiffEvent(ctx context.Context, opts Options, e model.DiffEvent) error {
	livePath := e.Path
	snapPath := translate(e.Path, opts.LiveRoot, opts.SnapRoot)

	switch e.Kind {
	case model.Removed, model.Modified:
		return CopyDirect(ctx, snapPath, livePath, true, opts.LiveRoot)
	case model.Created:
		if _, err := os.Lstat(snapPath); err == nil {
			return CopyDirect(ctx, snapPath, livePath, true, opts.LiveRoot)
		}
		if err := os.Remove(livePath); err != nil && !os.IsNotExist(err) {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't remove created-then-gone path %q"), livePath), err)
		}
		return nil
	case model.Renamed:
		newLive := e.NewPath
		newSnap := translate(e.NewPath, opts.LiveRoot, opts.SnapRoot)
		if _, err := os.Lstat(newSnap); err == nil {
			if err := CopyDirect(ctx, newSnap, newLive, true, opts.LiveRoot); err != nil {
				return err
			}
		} else if err := os.Remove(newLive); err != nil && !os.IsNotExist(err) {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't remove renamed-then-gone path %q"), newLive), err)
		}
		if _, err := os.Lstat(snapPath); err == nil {
			return CopyDirect(ctx, snapPath, livePath, true, opts.LiveRoot)
		}
		return nil
	default:
		return model.NewExternalProcessError(fmt.Sprintf(i18n.G("unknown diff kind for %q"), e.Path), nil)
	}
}

// verify implements step 6: walk the snapshot root and assert live
// metadata (size, mtime, symlink target) matches, applying directory
// attribute copies bottom-up as it goes and the dataset root last.
func verify(ctx context.Context, opts Options) error {
	var dirs []string
	err := filepath.Walk(opts.SnapRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		livePath := translate(path, opts.SnapRoot, opts.LiveRoot)
		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return verifySymlink(path, livePath)
		}
		return verifyRegular(path, livePath, info)
	})
	if err != nil {
		return model.NewVerificationError(i18n.G("roll-forward verification failed: %v"), err)
	}

	sort.Slice(dirs, func(i, j int) bool { return pathDepth(dirs[i]) > pathDepth(dirs[j]) })
	for _, d := range dirs {
		liveDir := translate(d, opts.SnapRoot, opts.LiveRoot)
		if err := copyOneAttributeSet(d, liveDir); err != nil {
			log.Warningf(ctx, i18n.G("couldn't preserve directory attributes on %q: %v"), liveDir, err)
		}
	}
	return nil
}

func verifySymlink(snapPath, livePath string) error {
	snapTarget, err := os.Readlink(snapPath)
	if err != nil {
		return err
	}
	liveTarget, err := os.Readlink(livePath)
	if err != nil {
		return model.NewVerificationError(i18n.G("%q: expected symlink target %q, live path unreadable: %v"), livePath, snapTarget, err)
	}
	if snapTarget != liveTarget {
		return model.NewVerificationError(i18n.G("%q: expected symlink target %q, got %q"), livePath, snapTarget, liveTarget)
	}
	return nil
}

func verifyRegular(snapPath, livePath string, snapInfo os.FileInfo) error {
	liveInfo, err := os.Lstat(livePath)
	if err != nil {
		return model.NewVerificationError(i18n.G("%q: expected to exist after roll-forward: %v"), livePath, err)
	}
	if liveInfo.Size() != snapInfo.Size() {
		return model.NewVerificationError(i18n.G("%q: size mismatch, expected %d got %d"), livePath, snapInfo.Size(), liveInfo.Size())
	}
	if !liveInfo.ModTime().Equal(snapInfo.ModTime()) {
		return model.NewVerificationError(i18n.G("%q: mtime mismatch, expected %v got %v"), livePath, snapInfo.ModTime(), liveInfo.ModTime())
	}
	return nil
}
