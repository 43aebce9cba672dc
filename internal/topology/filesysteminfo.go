package topology

import (
	"context"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// AliasesArg is the CLI-supplied alias string; the environment always
	// takes precedence, per LoadAliases.
	AliasesArg string
	// FilterDirs are directories the Recursive Deleted Walker should never
	// descend into (e.g. other snapshot roots it would otherwise re-walk).
	FilterDirs []string
}

// Build runs the Mount Inventory, Snapshot Indexer and Alias Resolver in
// sequence (A→B→C) and returns the immutable, process-wide FilesystemInfo
// object. It is intended to be called once at startup; the result is safe
// for unsynchronized concurrent reads thereafter.
func Build(ctx context.Context, opts BuildOptions) (*model.FilesystemInfo, error) {
	log.Debug(ctx, i18n.G("topology: discovering mounts"))
	mounts, err := Discover(ctx)
	if err != nil {
		return nil, err
	}

	ix := NewIndexer()
	snaps, err := ix.BuildIndex(ctx, mounts)
	if err != nil {
		return nil, err
	}

	aliases, err := LoadAliases(opts.AliasesArg)
	if err != nil {
		return nil, err
	}

	return &model.FilesystemInfo{
		Mounts:     mounts,
		Snapshots:  snaps,
		Aliases:    aliases,
		FilterDirs: opts.FilterDirs,
	}, nil
}
