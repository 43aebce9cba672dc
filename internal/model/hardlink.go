package model

// HardLinkMap indexes a dataset root's regular files by inode: LinkMap holds
// every inode with more than one surviving path (nlink > 1), Remainder holds
// the single-link (nlink == 1) files. Read-only after construction.
type HardLinkMap struct {
	LinkMap   map[uint64][]string
	Remainder map[string]bool
}

// NewHardLinkMap returns an empty, ready-to-populate map.
func NewHardLinkMap() *HardLinkMap {
	return &HardLinkMap{
		LinkMap:   make(map[uint64][]string),
		Remainder: make(map[string]bool),
	}
}

// Add records one regular file's inode and nlink count.
func (h *HardLinkMap) Add(path string, inode uint64, nlink uint64) {
	if nlink > 1 {
		h.LinkMap[inode] = append(h.LinkMap[inode], path)
		return
	}
	h.Remainder[path] = true
}
