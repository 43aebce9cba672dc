package model

import "time"

// Metadata carries the size/modify-time pair a PathDescriptor needs to
// participate in uniqueness comparisons. A nil *Metadata marks a phantom
// descriptor: a path that does not exist on the live filesystem but has a
// historical version in some snapshot.
type Metadata struct {
	Size       uint64
	ModifyTime time.Time
}

// PathDescriptor is an absolute, canonicalized path plus optional metadata.
// It is never mutated after construction: NewPathDescriptor and
// NewPhantomDescriptor are the only constructors.
type PathDescriptor struct {
	Path     string
	metadata *Metadata
}

// NewPathDescriptor builds a descriptor for a path that exists on disk.
func NewPathDescriptor(path string, size uint64, modifyTime time.Time) PathDescriptor {
	return PathDescriptor{Path: path, metadata: &Metadata{Size: size, ModifyTime: modifyTime}}
}

// NewPhantomDescriptor builds a descriptor carrying identity but no live
// metadata: a path present only in snapshots.
func NewPhantomDescriptor(path string) PathDescriptor {
	return PathDescriptor{Path: path}
}

// IsPhantom reports whether this descriptor carries no live metadata.
func (d PathDescriptor) IsPhantom() bool {
	return d.metadata == nil
}

// Size returns the descriptor's size and whether it was present (false for
// a phantom).
func (d PathDescriptor) Size() (uint64, bool) {
	if d.metadata == nil {
		return 0, false
	}
	return d.metadata.Size, true
}

// ModifyTime returns the descriptor's modification time and whether it was
// present (false for a phantom).
func (d PathDescriptor) ModifyTime() (time.Time, bool) {
	if d.metadata == nil {
		return time.Time{}, false
	}
	return d.metadata.ModifyTime, true
}

// uniquenessKey is the (modify_time, size) pair used by UniqueMetadata.
type uniquenessKey struct {
	modifyTime time.Time
	size       uint64
}

// Key returns the (modify_time, size) key used for UniqueMetadata
// deduplication. Only meaningful for non-phantom descriptors.
func (d PathDescriptor) key() uniquenessKey {
	if d.metadata == nil {
		return uniquenessKey{}
	}
	return uniquenessKey{modifyTime: d.metadata.ModifyTime, size: d.metadata.Size}
}

// UniquenessKey exposes the (size, modify_time) key for callers outside this
// package (the version-set builder keys its dedup map with it).
func (d PathDescriptor) UniquenessKey() (time.Time, uint64) {
	k := d.key()
	return k.modifyTime, k.size
}
