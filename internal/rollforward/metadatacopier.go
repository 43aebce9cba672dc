package rollforward

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshlf/go-acl"
	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
)

// blockSize is the unit of the block-differential copy: only blocks whose
// contents actually differ are written, so re-copying a mostly-unchanged
// large file is cheap.
const blockSize = 256 * 1024

// CopyDirect implements the Metadata Copier contract: copy_direct(src,
// dst, preserve). If src is a directory it is mkdir -p'd at dst. If src is
// a symlink, a symlink with the same target is created. If it's a regular
// file, a block-differential copy is performed. When preserve is set, the
// ancestor chain from dst up to root is walked afterwards copying mode,
// ACLs, ownership, xattrs and timestamps from the matching snapshot-side
// ancestor.
func CopyDirect(ctx context.Context, src, dst string, preserve bool, ancestorRoot string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't stat copy source %q"), src), err)
	}

	switch {
	case srcInfo.IsDir():
		if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't create directory %q"), dst), err)
		}
	case srcInfo.Mode()&os.ModeSymlink != 0:
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't create parent of %q"), filepath.Dir(dst)), err)
		}
		target, err := os.Readlink(src)
		if err != nil {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't read symlink %q"), src), err)
		}
		_ = os.Remove(dst)
		if err := os.Symlink(target, dst); err != nil {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't create symlink %q"), dst), err)
		}
	default:
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't create parent of %q"), filepath.Dir(dst)), err)
		}
		if err := blockDifferentialCopy(src, dst, srcInfo.Mode().Perm()); err != nil {
			return model.NewExternalProcessError(fmt.Sprintf(i18n.G("couldn't copy %q to %q"), src, dst), err)
		}
	}

	if preserve {
		copyAncestorAttributes(ctx, src, dst, ancestorRoot)
	}

	return nil
}

// blockDifferentialCopy writes dst block by block, skipping blocks whose
// content is already identical on disk — a no-op write syscall is cheaper
// than rewriting and churning the destination's extents.
func blockDifferentialCopy(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	srcBuf := make([]byte, blockSize)
	dstBuf := make([]byte, blockSize)
	var offset int64
	for {
		n, readErr := in.Read(srcBuf)
		if n > 0 {
			m, _ := out.ReadAt(dstBuf[:n], offset)
			if m != n || string(dstBuf[:n]) != string(srcBuf[:n]) {
				if _, err := out.WriteAt(srcBuf[:n], offset); err != nil {
					return err
				}
			}
			offset += int64(n)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return readErr
		}
	}
	return out.Truncate(offset)
}

// copyAncestorAttributes walks from dst up to ancestorRoot, copying each
// ancestor's mode/ACL/ownership/xattrs/timestamps from the corresponding
// snapshot-side ancestor (src's matching prefix). Failures on individual
// attributes are degraded to warnings: a filesystem without ACL or xattr
// support must not abort the whole copy.
func copyAncestorAttributes(ctx context.Context, src, dst, ancestorRoot string) {
	srcDir, dstDir := src, dst
	for {
		if err := copyOneAttributeSet(srcDir, dstDir); err != nil {
			log.Warningf(ctx, i18n.G("couldn't fully preserve attributes on %q: %v"), dstDir, err)
		}
		if dstDir == ancestorRoot || dstDir == "/" || dstDir == "." {
			break
		}
		parent := filepath.Dir(dstDir)
		if parent == dstDir {
			break
		}
		srcDir, dstDir = filepath.Dir(srcDir), parent
	}
}

// copyOneAttributeSet copies mode, ACLs, ownership, xattrs, and timestamps
// from src to dst without following symlinks. It returns the first error
// encountered but still attempts every remaining attribute.
func copyOneAttributeSet(src, dst string) error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	var st unix.Stat_t
	if err := unix.Lstat(src, &st); err != nil {
		return err
	}

	if st.Mode&unix.S_IFMT != unix.S_IFLNK {
		note(os.Chmod(dst, os.FileMode(st.Mode).Perm()))
	}

	note(unix.Lchown(dst, int(st.Uid), int(st.Gid)))

	if a, err := acl.Get(src); err == nil {
		note(acl.Set(dst, a))
	}

	if names, err := xattr.LList(src); err == nil {
		for _, name := range names {
			if !strings.HasPrefix(name, "security.") && !strings.HasPrefix(name, "user.") {
				continue
			}
			value, err := xattr.LGet(src, name)
			if err != nil {
				note(err)
				continue
			}
			note(xattr.LSet(dst, name, value))
		}
	}

	atime := unix.NsecToTimespec(st.Atim.Nano())
	mtime := unix.NsecToTimespec(st.Mtim.Nano())
	note(unix.UtimesNanoAt(unix.AT_FDCWD, dst, []unix.Timespec{atime, mtime}, unix.AT_SYMLINK_NOFOLLOW))

	return firstErr
}
