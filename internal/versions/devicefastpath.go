package versions

import (
	"golang.org/x/sys/unix"
)

// sameDeviceFastPath reports whether a and b live on the same underlying
// device and share the same inode, and therefore are the same file rather
// than merely same-sized files — in which case the caller may skip the
// later streaming byte comparison. It only ever returns true as an
// optimization hint: on any stat failure, or when the devices or inodes
// differ, it returns false and the caller falls back to a full content
// comparison.
func sameDeviceFastPath(a, b string) bool {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return false
	}
	if err := unix.Stat(b, &sb); err != nil {
		return false
	}
	if sa.Dev != sb.Dev {
		return false
	}
	return sa.Ino == sb.Ino
}
