package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/httm-go/httm/internal/deleted"
	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/versions"
)

// uniquenessFlag is a pflag.Value implementing the --uniqueness enum, so an
// invalid value is rejected at flag-parse time rather than at run time.
type uniquenessFlag struct {
	policy versions.Policy
}

func (u *uniquenessFlag) String() string {
	switch u.policy {
	case versions.UniqueContents:
		return "contents"
	case versions.All:
		return "none"
	default:
		return "metadata"
	}
}

func (u *uniquenessFlag) Set(value string) error {
	switch value {
	case "metadata", "":
		u.policy = versions.UniqueMetadata
	case "contents":
		u.policy = versions.UniqueContents
	case "none":
		u.policy = versions.All
	default:
		return fmt.Errorf("unknown uniqueness policy %q, want metadata, contents or none", value)
	}
	return nil
}

func (u *uniquenessFlag) Type() string { return "uniqueness" }

var (
	flagUniqueness    = &uniquenessFlag{policy: versions.UniqueMetadata}
	flagAltReplicated bool
	flagOmitDitto     bool
	flagDeleted       bool
	flagOnlyDeleted   bool

	listVersionsCmd = &cobra.Command{
		Use:   "list-versions PATH",
		Short: "List every distinct snapshot version of a live path",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdErr = listVersions(args[0])
		},
	}
)

var _ pflag.Value = (*uniquenessFlag)(nil)

func init() {
	listVersionsCmd.Flags().Var(flagUniqueness, "uniqueness", "deduplication policy: metadata, contents or none")
	listVersionsCmd.Flags().BoolVar(&flagAltReplicated, "alt-replicated", false, "widen the search to alternate-replicated datasets")
	listVersionsCmd.Flags().BoolVar(&flagOmitDitto, "omit-ditto", false, "drop snapshot entries identical to the live file")
	listVersionsCmd.Flags().BoolVar(&flagDeleted, "deleted", false, "treat PATH as a directory and also report paths that exist only in a snapshot")
	listVersionsCmd.Flags().BoolVar(&flagOnlyDeleted, "only-deleted", false, "like --deleted, but suppress entries that still exist live")
	rootCmd.AddCommand(listVersionsCmd)
}

func listVersions(path string) error {
	ctx := context.Background()
	fi, err := buildFilesystemInfo(ctx, flagAliases)
	if err != nil {
		return err
	}

	if flagDeleted || flagOnlyDeleted {
		return listDeleted(ctx, fi, path)
	}

	descriptors, err := versions.Versions(ctx, fi, path, versions.Options{
		Policy:        flagUniqueness.policy,
		AltReplicated: flagAltReplicated,
		OmitDitto:     flagOmitDitto,
	})
	if err != nil {
		return err
	}

	for _, d := range descriptors {
		printDescriptor(d)
	}

	return nil
}

// listDeleted drives the Recursive Deleted Walker over path as a directory
// root, printing every live and phantom entry it reports.
func listDeleted(ctx context.Context, fi *model.FilesystemInfo, path string) error {
	mode := deleted.DepthOfOne
	if flagOnlyDeleted {
		mode = deleted.Only
	}

	results, err := deleted.Walk(ctx, fi, path, deleted.Options{
		Mode:          mode,
		AltReplicated: flagAltReplicated,
	})
	if err != nil {
		return err
	}

	for r := range results {
		if r.Err != nil {
			return r.Err
		}
		for _, d := range r.Entries {
			printDescriptor(d)
		}
	}

	return nil
}

func printDescriptor(d model.PathDescriptor) {
	if mt, ok := d.ModifyTime(); ok {
		size, _ := d.Size()
		fmt.Printf("%s\t%d\t%s\n", d.Path, size, mt.Format("2006-01-02T15:04:05"))
		return
	}
	fmt.Printf("%s\t(deleted)\n", d.Path)
}
