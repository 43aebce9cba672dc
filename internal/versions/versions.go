// Package versions implements the Version Set Builder (4.E): given a query
// path, collect metadata for every candidate snapshot-side version,
// deduplicate per the active uniqueness policy, and order the result.
package versions

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/pathresolve"
)

// Policy selects how candidate versions are deduplicated.
type Policy int

const (
	// UniqueMetadata keeps one descriptor per (modify_time, size) key. It
	// is the default.
	UniqueMetadata Policy = iota
	// All keeps every candidate in snapshot-mount order ("NoFilter").
	All
	// UniqueContents content-compares same-size candidates by streaming
	// equality and keeps one canonical path per equivalence class.
	UniqueContents
)

// Options configures Versions.
type Options struct {
	Policy        Policy
	AltReplicated bool
	// OmitDitto removes any snapshot entry whose (modify_time, size)
	// equals the live entry's.
	OmitDitto bool
}

// candidate is an intermediate (pre-dedup) stat result.
type candidate struct {
	path       string
	size       uint64
	modifyTime timeKey
}

// Versions implements the Version Set Builder contract:
// versions(query_path, uniqueness) → [PathDescriptor]. For each snapshot
// mount in the Path Resolver's output it forms S/relative, stats it
// (skipping non-existent candidates), deduplicates per the uniqueness
// policy, and orders the result by modify_time ascending with the live
// path appended last.
func Versions(ctx context.Context, fi *model.FilesystemInfo, queryPath string, opts Options) ([]model.PathDescriptor, error) {
	resolved, err := pathresolve.Resolve(fi, queryPath, pathresolve.Options{AltReplicated: opts.AltReplicated})
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, snapMount := range resolved.SnapshotMounts {
		p := filepath.Join(snapMount, resolved.RelativePath)
		info, err := os.Lstat(p)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{
			path:       p,
			size:       uint64(info.Size()),
			modifyTime: timeKeyFromModTime(info),
		})
	}

	deduped, err := dedup(candidates, opts.Policy)
	if err != nil {
		return nil, err
	}

	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].modifyTime.Before(deduped[j].modifyTime)
	})

	descriptors := make([]model.PathDescriptor, 0, len(deduped)+1)
	for _, c := range deduped {
		descriptors = append(descriptors, model.NewPathDescriptor(c.path, c.size, c.modifyTime.toTime()))
	}

	liveCandidate, liveOK := statLive(filepath.Join(resolved.ProximateMount.MountPoint, resolved.RelativePath))

	if opts.OmitDitto && liveOK {
		filtered := descriptors[:0]
		for _, d := range descriptors {
			mt, _ := d.ModifyTime()
			sz, _ := d.Size()
			if timeKeyFromTime(mt) == liveCandidate.modifyTime && sz == liveCandidate.size {
				continue
			}
			filtered = append(filtered, d)
		}
		descriptors = filtered
	}

	if liveOK {
		descriptors = append(descriptors, model.NewPathDescriptor(liveCandidate.path, liveCandidate.size, liveCandidate.modifyTime.toTime()))
	}

	return descriptors, nil
}

func statLive(path string) (candidate, bool) {
	info, err := os.Lstat(path)
	if err != nil || info.IsDir() {
		return candidate{}, false
	}
	return candidate{
		path:       path,
		size:       uint64(info.Size()),
		modifyTime: timeKeyFromModTime(info),
	}, true
}

// dedup applies the uniqueness policy to the candidate list.
func dedup(candidates []candidate, policy Policy) ([]candidate, error) {
	switch policy {
	case All:
		return candidates, nil
	case UniqueMetadata:
		return dedupMetadata(candidates), nil
	case UniqueContents:
		return dedupContents(candidates)
	default:
		return nil, model.NewResolutionError(i18n.G("unknown uniqueness policy %d"), policy)
	}
}

func dedupMetadata(candidates []candidate) []candidate {
	seen := make(map[timeKey]map[uint64]bool)
	var out []candidate
	for _, c := range candidates {
		bySize, ok := seen[c.modifyTime]
		if !ok {
			bySize = make(map[uint64]bool)
			seen[c.modifyTime] = bySize
		}
		if bySize[c.size] {
			continue
		}
		bySize[c.size] = true
		out = append(out, c)
	}
	return out
}

// dedupContents groups same-size candidates and, within each group,
// content-compares by streaming equality (short-circuiting on first
// difference), keeping one canonical path per equivalence class.
func dedupContents(candidates []candidate) ([]candidate, error) {
	bySize := make(map[uint64][]candidate)
	var sizeOrder []uint64
	for _, c := range candidates {
		if _, ok := bySize[c.size]; !ok {
			sizeOrder = append(sizeOrder, c.size)
		}
		bySize[c.size] = append(bySize[c.size], c)
	}

	var out []candidate
	for _, size := range sizeOrder {
		group := bySize[size]
		var canon []candidate
		for _, c := range group {
			isDup := false
			for _, k := range canon {
				// sameDeviceFastPath only ever confirms identity (same
				// device and inode); it never rules it out, so a false
				// result always falls through to a full byte comparison.
				if sameDeviceFastPath(k.path, c.path) {
					isDup = true
					break
				}
				equal, err := contentsEqual(k.path, c.path)
				if err != nil {
					return nil, model.NewExternalProcessError(i18n.G("couldn't compare contents"), err)
				}
				if equal {
					isDup = true
					break
				}
			}
			if !isDup {
				canon = append(canon, c)
			}
		}
		out = append(out, canon...)
	}
	return out, nil
}

// contentsEqual streams both files block-by-block, stopping at the first
// mismatch.
func contentsEqual(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	const blockSize = 64 * 1024
	ba := make([]byte, blockSize)
	bb := make([]byte, blockSize)
	for {
		na, erra := fa.Read(ba)
		nb, errb := fb.Read(bb)
		if na != nb {
			return false, nil
		}
		if na > 0 && string(ba[:na]) != string(bb[:nb]) {
			return false, nil
		}
		aDone := erra != nil
		bDone := errb != nil
		if aDone || bDone {
			if isEOF(erra) && isEOF(errb) {
				return true, nil
			}
			if aDone && !isEOF(erra) {
				return false, erra
			}
			if bDone && !isEOF(errb) {
				return false, errb
			}
			// One stream ended before the other: sizes disagreed.
			return false, nil
		}
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
