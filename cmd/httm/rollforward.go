package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/httm-go/httm/internal/rollforward"
	"github.com/httm-go/httm/internal/zfsexec"
)

var (
	rollForwardCmd = &cobra.Command{
		Use:   "roll-forward DATASET@SNAPSHOT LIVE_ROOT SNAPSHOT_ROOT",
		Short: "Reconcile a live dataset to match a snapshot, preserving hard links and metadata",
		Long: `Takes a pre-guard snapshot, reconciles hard-link topology between the
live and snapshot trees, applies the zfs diff in descendant-before-ancestor
order, verifies the result, and rolls back to the pre-guard snapshot on any
failure.`,
		Args: cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			cmdErr = rollForward(args[0], args[1], args[2])
		},
	}
)

func init() {
	rootCmd.AddCommand(rollForwardCmd)
}

func rollForward(datasetAtSnap, liveRoot, snapRoot string) error {
	dataset, snap, err := splitDatasetAtSnap(datasetAtSnap)
	if err != nil {
		return err
	}

	return rollforward.RollForward(context.Background(), zfsexec.Exec{}, dataset, snap, rollforward.Options{
		LiveRoot: liveRoot,
		SnapRoot: snapRoot,
	})
}
