package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/httm-go/httm/internal/config"
	"github.com/httm-go/httm/internal/zfsexec"
)

var (
	flagSnapSuffix string

	snapCmd = &cobra.Command{
		Use:   "snap DATASET",
		Short: "Take an on-demand precautionary snapshot of a dataset",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdErr = snap(args[0])
		},
	}
)

func init() {
	snapCmd.Flags().StringVar(&flagSnapSuffix, "suffix", config.DefaultSnapshotSuffix, "suffix appended to the generated snapshot name")
	rootCmd.AddCommand(snapCmd)
}

func snap(dataset string) error {
	if err := config.ValidateSnapshotSuffix(flagSnapSuffix); err != nil {
		return err
	}

	name := time.Now().UTC().Format(config.GuardTimestampFormat) + "-" + flagSnapSuffix
	return zfsexec.Snapshot(context.Background(), zfsexec.Exec{}, dataset, name)
}
