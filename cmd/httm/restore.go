package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/httm-go/httm/internal/pathresolve"
	"github.com/httm-go/httm/internal/rollforward"
)

var (
	flagRestoreNoPreserve bool

	restoreCmd = &cobra.Command{
		Use:   "restore SNAPSHOT_VERSION_PATH LIVE_PATH",
		Short: "Restore one file from a snapshot version onto its live path",
		Long: `Copies a single snapshot-side path over its live counterpart,
block-differentially, preserving the ancestor-chain's mode, ACL,
ownership, xattrs and timestamps up to the live dataset's mount point,
unless --no-preserve is given.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cmdErr = restore(args[0], args[1])
		},
	}
)

func init() {
	restoreCmd.Flags().BoolVar(&flagRestoreNoPreserve, "no-preserve", false, "skip ancestor-chain attribute preservation")
	rootCmd.AddCommand(restoreCmd)
}

func restore(snapshotVersionPath, livePath string) error {
	ctx := context.Background()
	fi, err := buildFilesystemInfo(ctx, flagAliases)
	if err != nil {
		return err
	}

	resolved, err := pathresolve.Resolve(fi, livePath, pathresolve.Options{})
	if err != nil {
		return err
	}

	return rollforward.CopyDirect(ctx, snapshotVersionPath, livePath, !flagRestoreNoPreserve, resolved.ProximateMount.MountPoint)
}
