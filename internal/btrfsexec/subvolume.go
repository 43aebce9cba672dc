package btrfsexec

import (
	"bufio"
	"context"
	"regexp"
	"strings"
)

// fsTreeMarker is the token btrfs prints in place of a subvolume path when
// that path is rooted outside of the subvolume being queried; it must be
// resolved against the mount whose subvolume is "/".
const fsTreeMarker = "<FS_TREE>/"

var subvolumeLine = regexp.MustCompile(`^ID (\d+) gen (\d+) top level (\d+) path (.+)$`)

// Subvolume is one parsed line of `btrfs subvolume list -a -s <mount>`.
type Subvolume struct {
	ID       int
	Gen      int
	TopLevel int
	// Path is either relative to the queried mount, or prefixed with
	// fsTreeMarker when it must be resolved against the filesystem's root
	// subvolume instead.
	Path string
}

// RootRelative reports whether Path is rooted at the filesystem's top-level
// subvolume (the "<FS_TREE>/" case) rather than being relative to the
// queried mount.
func (s Subvolume) RootRelative() (string, bool) {
	if strings.HasPrefix(s.Path, fsTreeMarker) {
		return strings.TrimPrefix(s.Path, fsTreeMarker), true
	}
	return "", false
}

// ParseSubvolumeList parses the output of `btrfs subvolume list -a -s
// <mount>`: one "ID <n> gen <n> top level <n> path <path>" line per
// snapshot subvolume. Order is the enumeration order and is preserved.
func ParseSubvolumeList(output []byte) []Subvolume {
	var list []Subvolume
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		m := subvolumeLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		list = append(list, Subvolume{
			ID:       atoiOrZero(m[1]),
			Gen:      atoiOrZero(m[2]),
			TopLevel: atoiOrZero(m[3]),
			Path:     m[4],
		})
	}
	return list
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// List runs `btrfs subvolume list -a -s <mount>` and parses its output.
func List(ctx context.Context, r Runner, mount string) ([]Subvolume, error) {
	stdout, stderr, err := r.Run(ctx, "subvolume", "list", "-a", "-s", mount)
	if err != nil {
		return nil, &listError{mount: mount, stderr: string(stderr), err: err}
	}
	return ParseSubvolumeList(stdout), nil
}

type listError struct {
	mount  string
	stderr string
	err    error
}

func (e *listError) Error() string {
	return "btrfs subvolume list " + e.mount + ": " + e.stderr + ": " + e.err.Error()
}

func (e *listError) Unwrap() error { return e.err }
