package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/topology"
)

// buildFilesystemInfo runs the Mount Inventory, Snapshot Indexer and Alias
// Resolver (A→B→C) once per invocation, the way every subcommand needs it
// before it can resolve a query path.
func buildFilesystemInfo(ctx context.Context, aliasesArg string) (*model.FilesystemInfo, error) {
	return topology.Build(ctx, topology.BuildOptions{AliasesArg: aliasesArg})
}

// splitDatasetAtSnap splits "dataset@snap" into its two parts.
func splitDatasetAtSnap(datasetAtSnap string) (dataset, snap string, err error) {
	parts := strings.SplitN(datasetAtSnap, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%q is not a valid dataset@snapshot identifier", datasetAtSnap)
	}
	return parts[0], parts[1], nil
}
