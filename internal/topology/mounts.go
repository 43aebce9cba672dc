// Package topology builds and indexes the relationship between live mounts,
// their snapshot directories, alternate-replicated datasets, and
// user-defined aliases: components 4.A (Mount Inventory), 4.B (Snapshot
// Indexer) and 4.C (Alias & Alt-Replicated Resolver).
package topology

import (
	"context"
	"os"
	"strings"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
)

// zfsHiddenSnapDir is the hidden directory ZFS exposes snapshot roots
// under.
const zfsHiddenSnapDir = ".zfs"

// rawMount is one line of the kernel mount table or `mount` output, before
// classification and filtering.
type rawMount struct {
	source  string
	target  string
	fstype  string
	options string
}

// classify maps fstype to model.FilesystemType and, for btrfs, resolves the
// subvol= mount option which replaces the source identifier when present.
func (m rawMount) classify() (model.FilesystemType, string) {
	switch m.fstype {
	case "zfs":
		return model.ZFS, m.source
	case "btrfs":
		source := m.source
		if subvol := mountOption(m.options, "subvol"); subvol != "" {
			source = subvol
		}
		return model.Btrfs, source
	default:
		return model.Other, m.source
	}
}

// mountOption extracts the value of key from a comma-separated mount
// options string, e.g. mountOption("rw,subvol=/@home,noatime", "subvol").
func mountOption(options, key string) string {
	for _, opt := range strings.Split(options, ",") {
		if v, ok := strings.CutPrefix(opt, key+"="); ok {
			return v
		}
	}
	return ""
}

// Discover implements the Mount Inventory contract: parse the kernel mount
// table, keep only zfs/btrfs mounts whose target still exists and which are
// not themselves under a ZFS snapshot directory, and fail with a
// TopologyError if nothing is left.
func Discover(ctx context.Context) ([]model.MountRecord, error) {
	raw, err := platformMounts()
	if err != nil {
		return nil, model.NewExternalProcessError(i18n.G("couldn't read the mount table"), err)
	}

	seen := make(map[string]bool)
	var records []model.MountRecord
	for _, m := range raw {
		fsType, source := m.classify()
		if fsType == model.Other {
			continue
		}
		if strings.Contains(m.target, "/"+zfsHiddenSnapDir+"/") {
			continue
		}
		if seen[m.target] {
			continue
		}
		if _, err := os.Stat(m.target); err != nil {
			log.Debugf(ctx, i18n.G("mount inventory: dropping %q, target no longer exists: %v"), m.target, err)
			continue
		}
		seen[m.target] = true
		records = append(records, model.MountRecord{
			MountPoint:     m.target,
			Source:         source,
			FilesystemType: fsType,
		})
	}

	if len(records) == 0 {
		return nil, model.NewTopologyError(i18n.G("no zfs or btrfs datasets found"))
	}
	return records, nil
}
