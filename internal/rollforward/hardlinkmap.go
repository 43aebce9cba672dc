package rollforward

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
)

// BuildHardLinkMap implements the Hard-Link Map contract: build(root) →
// HardLinkMap. It walks root recursively (LIFO: a directory's own entries
// are processed before descending, matching the depth-first stack order a
// manual push/pop walk would use), stats every regular file, and groups by
// inode. Directories whose open fails are skipped silently; this is the
// documented per-entry walk tolerance, not a propagated error.
func BuildHardLinkMap(ctx context.Context, root string) (*model.HardLinkMap, error) {
	hlm := model.NewHardLinkMap()
	stack := []string{root}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Debugf(ctx, i18n.G("hard-link map: skipping unreadable directory %q: %v"), dir, err)
			continue
		}

		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() {
				stack = append(stack, path)
				continue
			}
			var st unix.Stat_t
			if err := unix.Lstat(path, &st); err != nil {
				continue
			}
			if st.Mode&unix.S_IFMT != unix.S_IFREG {
				continue
			}
			hlm.Add(path, uint64(st.Ino), uint64(st.Nlink))
		}
	}

	return hlm, nil
}
