package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/httm-go/httm/internal/zfsexec"
)

var (
	pruneCmd = &cobra.Command{
		Use:   "prune DATASET@SNAPSHOT",
		Short: "Destroy a single, non-cascading snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdErr = prune(args[0])
		},
	}
)

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func prune(datasetAtSnap string) error {
	dataset, snap, err := splitDatasetAtSnap(datasetAtSnap)
	if err != nil {
		return err
	}

	return zfsexec.Destroy(context.Background(), zfsexec.Exec{}, dataset, snap)
}
