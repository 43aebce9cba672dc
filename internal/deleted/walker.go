// Package deleted implements the Recursive Deleted Walker (4.F): a BFS over
// the live tree that also lists each directory's snapshot-side versions and
// emits "phantom" entries for paths that exist only in a snapshot.
package deleted

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/pathresolve"
)

// Mode selects how deep phantom entries are reported, per the active
// DeletedMode.
type Mode int

const (
	// DepthOfOne drops phantoms whose parent is itself a phantom: only the
	// first missing ancestor in any branch is reported.
	DepthOfOne Mode = iota
	// All reports every phantom, recursing into phantom-only subtrees by
	// reading their snapshot-side directory contents.
	All
	// Only reports phantoms and suppresses live entries.
	Only
)

// Options configures Walk.
type Options struct {
	Mode Mode
	// OneFilesystem skips any directory whose st_dev differs from the
	// root's.
	OneFilesystem bool
	// NoTraverse skips symlinks instead of following them.
	NoTraverse bool
	// NoHidden skips dotfiles.
	NoHidden bool
	// AltReplicated widens snapshot coverage the way versions.Options does.
	AltReplicated bool
	// ChannelSize bounds the result channel, providing backpressure from a
	// slow display consumer.
	ChannelSize int
}

// DirResult pairs one visited directory with the descriptors (live and/or
// phantom) found in it.
type DirResult struct {
	Directory string
	Entries   []model.PathDescriptor
	Err       error
}

// Walk implements the Recursive Deleted Walker contract. It returns a
// channel the caller drains; the walker suspends on a full channel and
// resumes on drain, and terminates promptly once the caller cancels ctx or
// stops draining and the channel send observes ctx.Done().
func Walk(ctx context.Context, fi *model.FilesystemInfo, root string, opts Options) (<-chan DirResult, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, model.NewResolutionError(i18n.G("couldn't stat walk root %q: %v"), root, err)
	}
	rootDev, _ := deviceOf(root)
	budget := fdBudget()

	size := opts.ChannelSize
	if size <= 0 {
		size = budget
	}
	out := make(chan DirResult, size)

	go func() {
		defer close(out)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(budget)
		w := &walker{ctx: gctx, fi: fi, opts: opts, rootDev: rootDev, out: out, g: g}
		g.Go(func() error {
			w.visit(root, 0, false)
			return nil
		})
		if err := g.Wait(); err != nil {
			log.Debugf(ctx, i18n.G("deleted walker: %v"), err)
		}
	}()

	return out, nil
}

// walker fans a directory tree out across a work-stealing pool capped at
// fdBudget() concurrent branches: each visit call that descends into a
// child directory hands it to g when a slot is free and recurses in-line
// otherwise, so wide trees are walked in parallel without exhausting file
// descriptors.
type walker struct {
	ctx     context.Context
	fi      *model.FilesystemInfo
	opts    Options
	rootDev uint64
	out     chan DirResult
	g       *errgroup.Group
}

// visit processes directory dir at the given BFS depth. parentIsPhantom
// marks that dir itself has no live counterpart (we are recursing into a
// phantom-only subtree using only snapshot-side listings).
func (w *walker) visit(dir string, depth int, parentIsPhantom bool) {
	if w.ctx.Err() != nil {
		return
	}

	if parentIsPhantom && w.opts.Mode != All {
		return
	}

	liveEntries, liveErr := w.readLiveDir(dir)
	if liveErr != nil && !parentIsPhantom {
		log.Debugf(w.ctx, i18n.G("deleted walker: skipping %q: %v"), dir, liveErr)
		return
	}

	phantomNames, phantomDirsToRecurse := w.phantomsOf(dir, liveEntries, parentIsPhantom)

	var result []model.PathDescriptor
	if w.opts.Mode != Only {
		for name, info := range liveEntries {
			result = append(result, model.NewPathDescriptor(filepath.Join(dir, name), uint64(info.Size()), info.ModTime()))
		}
	}
	for name := range phantomNames {
		result = append(result, model.NewPhantomDescriptor(filepath.Join(dir, name)))
	}

	if len(result) > 0 {
		select {
		case w.out <- DirResult{Directory: dir, Entries: result}:
		case <-w.ctx.Done():
			return
		}
	}

	if parentIsPhantom {
		// Phantom subtree recursion only ever reads snapshot-side
		// listings (there's nothing live to descend into); that's driven
		// entirely by phantomDirsToRecurse below.
		for _, name := range phantomDirsToRecurse {
			w.spawn(filepath.Join(dir, name), depth+1, true)
		}
		return
	}

	for name, info := range liveEntries {
		if !info.IsDir() {
			continue
		}
		child := filepath.Join(dir, name)
		filtered := false
		for _, f := range w.fi.FilterDirs {
			if filepath.Clean(f) == child {
				filtered = true
				break
			}
		}
		if filtered {
			continue
		}
		if w.opts.OneFilesystem {
			if dev, ok := deviceOf(child); ok && dev != w.rootDev {
				continue
			}
		}
		w.spawn(child, depth+1, false)
	}
	for _, name := range phantomDirsToRecurse {
		w.spawn(filepath.Join(dir, name), depth+1, true)
	}
}

// spawn hands a child directory to the walker's bounded pool. When every
// slot is taken it visits the child in-line on the calling branch instead
// of waiting for a slot, so a branch never blocks on the limit while still
// holding its own slot, and the recursion cannot deadlock against it.
func (w *walker) spawn(dir string, depth int, parentIsPhantom bool) {
	started := w.g.TryGo(func() error {
		w.visit(dir, depth, parentIsPhantom)
		return nil
	})
	if !started {
		w.visit(dir, depth, parentIsPhantom)
	}
}

// readLiveDir lists dir's live entries, applying NoTraverse/NoHidden.
func (w *walker) readLiveDir(dir string) (map[string]os.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]os.FileInfo, len(entries))
	for _, e := range entries {
		if w.opts.NoHidden && len(e.Name()) > 0 && e.Name()[0] == '.' {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if w.opts.NoTraverse && info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		out[e.Name()] = info
	}
	return out, nil
}

// phantomsOf computes the set of names present in some snapshot covering
// dir but absent from liveEntries, honoring the active DeletedMode. It also
// returns, among those phantom names, the subset that are themselves
// directories in the snapshot and that All-mode recursion should descend
// into.
func (w *walker) phantomsOf(dir string, liveEntries map[string]os.FileInfo, parentIsPhantom bool) (map[string]bool, []string) {
	phantoms := make(map[string]bool)
	var phantomDirs []string

	if w.opts.Mode == DepthOfOne && parentIsPhantom {
		return phantoms, nil
	}

	resolved, err := pathresolve.Resolve(w.fi, dir, pathresolve.Options{AltReplicated: w.opts.AltReplicated})
	if err != nil {
		return phantoms, nil
	}

	seenDirPhantom := make(map[string]bool)
	for _, snapMount := range resolved.SnapshotMounts {
		snapDir := filepath.Join(snapMount, resolved.RelativePath)
		entries, err := os.ReadDir(snapDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if w.opts.NoHidden && len(e.Name()) > 0 && e.Name()[0] == '.' {
				continue
			}
			if _, isLive := liveEntries[e.Name()]; isLive {
				continue
			}
			phantoms[e.Name()] = true
			if e.IsDir() && !seenDirPhantom[e.Name()] {
				seenDirPhantom[e.Name()] = true
				if w.opts.Mode == All {
					phantomDirs = append(phantomDirs, e.Name())
				}
			}
		}
	}

	sort.Strings(phantomDirs)
	return phantoms, phantomDirs
}

// deviceOf returns path's st_dev, used for OneFilesystem boundary checks.
func deviceOf(path string) (uint64, bool) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, false
	}
	return uint64(st.Dev), true
}

// fdBudget derives a parallelism/backpressure cap from the process's open
// file descriptor soft limit, falling back to NumCPU if the syscall fails —
// the Go port of the original's httm_max_open_files-derived cap, avoiding
// fd exhaustion during wide recursive walks.
func fdBudget() int {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return runtime.NumCPU()
	}
	budget := int(rlimit.Cur / 64)
	if budget < 1 {
		budget = 1
	}
	if budget > 256 {
		budget = 256
	}
	return budget
}
