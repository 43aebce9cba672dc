package zfsexec

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
)

// Snapshot runs `zfs snapshot dataset@name`.
func Snapshot(ctx context.Context, r Runner, dataset, name string) error {
	target := dataset + "@" + name
	log.Debugf(ctx, i18n.G("zfs: taking snapshot %q"), target)
	_, stderr, err := r.Run(ctx, "snapshot", target)
	if err != nil {
		return model.NewExternalProcessError(i18n.G("zfs snapshot failed")+": "+string(stderr), err)
	}
	return nil
}

// Rollback runs `zfs rollback -r dataset@name`, destroying any snapshot and
// clone created after it (the -r flag recurses over later, dependent
// snapshots so the rollback always succeeds).
func Rollback(ctx context.Context, r Runner, datasetAtSnap string) error {
	log.Debugf(ctx, i18n.G("zfs: rolling back to %q"), datasetAtSnap)
	_, stderr, err := r.Run(ctx, "rollback", "-r", datasetAtSnap)
	if err != nil {
		return model.NewExternalProcessError(i18n.G("zfs rollback failed")+": "+string(stderr), err)
	}
	return nil
}

// AllowsMountAndSnapshot runs `zfs allow dataset`, parses the output for the
// current user (from the USER environment variable) and reports whether
// that user holds both the mount and snapshot permissions required by the
// Snapshot Guard and Roll-Forward Engine.
func AllowsMountAndSnapshot(ctx context.Context, r Runner, dataset string) (bool, error) {
	user := os.Getenv("USER")
	if user == "" {
		return false, model.NewPrivilegeError(i18n.G("USER environment variable is unset; cannot check zfs allow permissions"))
	}

	stdout, stderr, err := r.Run(ctx, "allow", dataset)
	if err != nil {
		return false, model.NewExternalProcessError(i18n.G("zfs allow failed")+": "+string(stderr), err)
	}

	var inUserBlock bool
	var hasMount, hasSnapshot bool
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "user" && fields[1] == user {
			inUserBlock = true
			for _, tok := range fields[2:] {
				tok = strings.TrimRight(tok, ",")
				if tok == "mount" {
					hasMount = true
				}
				if tok == "snapshot" {
					hasSnapshot = true
				}
			}
			continue
		}
		// A non-indented line other than this user's own entry (a new
		// section header) ends the current user's permission block;
		// indented lines do not.
		if inUserBlock && !strings.HasPrefix(scanner.Text(), " ") && !strings.HasPrefix(scanner.Text(), "\t") {
			if fields[0] != "user" || fields[1] != user {
				inUserBlock = false
			}
		}
	}

	return hasMount && hasSnapshot, nil
}

// Destroy runs `zfs destroy dataset@name`, permanently removing a snapshot.
// This is the only mutating call the prune command issues; it never takes
// a recursive (-r) flag, so it refuses to cascade into clones or child
// snapshots.
func Destroy(ctx context.Context, r Runner, dataset, name string) error {
	target := dataset + "@" + name
	log.Debugf(ctx, i18n.G("zfs: destroying snapshot %q"), target)
	_, stderr, err := r.Run(ctx, "destroy", target)
	if err != nil {
		return model.NewExternalProcessError(i18n.G("zfs destroy failed")+": "+string(stderr), err)
	}
	return nil
}

// DiffStream starts `zfs diff -H -t -h dataset@snap` and returns the raw
// stdout stream for the Diff Ingestor to parse lazily, plus a wait function
// that must be called exactly once after the caller is done reading (or
// wants to abort early) to reap the child and retrieve stderr.
func DiffStream(ctx context.Context, r Runner, datasetAtSnap string) (stdout io.ReadCloser, wait func() ([]byte, error), err error) {
	log.Debugf(ctx, i18n.G("zfs: diffing %q"), datasetAtSnap)
	return r.Start(ctx, "diff", "-H", "-t", "-h", datasetAtSnap)
}
