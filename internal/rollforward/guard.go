// Package rollforward implements the Snapshot Guard, Diff Ingestor,
// Hard-Link Map, Roll-Forward Engine, and Metadata Copier (4.G-4.K): the
// machinery that reconciles a live dataset with one of its snapshots.
package rollforward

import (
	"context"
	"time"

	"github.com/httm-go/httm/internal/config"
	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/zfsexec"
)

// GuardKind distinguishes the pre-operation guard snapshot from the
// post-operation one.
type GuardKind int

const (
	// PreRollForward is taken before any mutating operation begins.
	PreRollForward GuardKind = iota
	// PostRollForward is taken once the operation has verified clean.
	PostRollForward
)

func (k GuardKind) token() string {
	if k == PreRollForward {
		return "pre"
	}
	return "post"
}

// Guard is a precautionary snapshot plus the means to roll back to it.
type Guard struct {
	Dataset      string
	SnapshotName string
	runner       zfsexec.Runner
}

// AcquireGuard implements the Snapshot Guard contract: it requires the
// current user to hold the `zfs allow` mount and snapshot permissions
// (checked by AllowsMountAndSnapshot) and issues a snapshot named
// "<dataset>@httmSnapGuard-<timestamp>-<pre|post>[-<orig>]-<uuid8>".
// Failure to acquire is fatal: the caller must not proceed with any
// mutating operation.
func AcquireGuard(ctx context.Context, r zfsexec.Runner, dataset string, kind GuardKind, originalSnapName string) (*Guard, error) {
	allowed, err := zfsexec.AllowsMountAndSnapshot(ctx, r, dataset)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, model.NewPrivilegeError(i18n.G("current user lacks mount+snapshot permission on %q; cannot guard"), dataset)
	}

	name := config.GuardSnapshotName(guardNow(), kind.token(), originalSnapName)
	if err := zfsexec.Snapshot(ctx, r, dataset, name); err != nil {
		return nil, err
	}
	log.Infof(ctx, i18n.G("acquired guard snapshot %s@%s"), dataset, name)
	return &Guard{Dataset: dataset, SnapshotName: name, runner: r}, nil
}

// Rollback invokes the filesystem's rollback-to-snapshot operation. A
// successful post-guard rollback is never implied: callers only call
// Rollback on the pre-guard; the post-guard, once taken, is never rolled
// back to and is left in place for auditing alongside the pre-guard.
func (g *Guard) Rollback(ctx context.Context) error {
	log.Warningf(ctx, i18n.G("rolling back %s to guard snapshot %s"), g.Dataset, g.SnapshotName)
	return zfsexec.Rollback(ctx, g.runner, g.Dataset+"@"+g.SnapshotName)
}

// guardNow is a seam over time.Now so tests can supply a fixed clock;
// production code always uses the wall clock.
var guardNow = time.Now
