package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/httm-go/httm/cmd/httm/cmdhandler"
	"github.com/httm-go/httm/internal/config"
	"github.com/httm-go/httm/internal/log"
)

var (
	cmdErr          error
	flagVerbosity   int
	flagAliases     string
	flagDefaultsYML string

	rootCmd = &cobra.Command{
		Use:   "httm COMMAND",
		Short: "Navigate, compare and restore previous file versions from ZFS/btrfs snapshots",
		Long: `httm locates every snapshot version of a live file, deduplicates them,
and supports displaying, restoring, snapshotting, pruning, and
non-destructively rolling a dataset forward to a selected snapshot while
preserving hard links and extended metadata.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetVerboseMode(flagVerbosity > 0)
			switch {
			case flagVerbosity >= 2:
				log.SetLevel(log.DebugLevel)
			case flagVerbosity == 1:
				log.SetLevel(log.InfoLevel)
			default:
				log.SetLevel(log.DefaultLevel)
			}
			return applyDefaultsFile(cmd, flagDefaultsYML)
		},
		Args:          cmdhandler.SubcommandsRequiredWithSuggestions,
		Run:           cmdhandler.NoCmd,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

func init() {
	home, _ := os.UserHomeDir()
	var defaultDefaultsFile string
	if home != "" {
		defaultDefaultsFile = filepath.Join(home, ".config", "httm", "defaults.yaml")
	}

	rootCmd.PersistentFlags().CountVarP(&flagVerbosity, "verbose", "v", "issue INFO (-v) and DEBUG (-vv) output")
	rootCmd.PersistentFlags().StringVar(&flagAliases, "aliases", "", "comma-separated LOCAL:REMOTE alias pairs (overridden by HTTM_MAP_ALIASES)")
	rootCmd.PersistentFlags().StringVar(&flagDefaultsYML, "defaults-file", defaultDefaultsFile, "optional YAML file supplying default --aliases/--uniqueness values")
}

// applyDefaultsFile loads the on-disk defaults file, if any, and fills in
// any flag the invoked subcommand supports but the user did not explicitly
// set on the command line.
func applyDefaultsFile(cmd *cobra.Command, path string) error {
	if path == "" {
		return nil
	}
	defaults, err := config.LoadDefaultsFile(path)
	if err != nil {
		return err
	}

	if defaults.Aliases != "" && !cmd.Flags().Changed("aliases") {
		flagAliases = defaults.Aliases
	}
	if defaults.Uniqueness != "" && cmd.Flags().Lookup("uniqueness") != nil && !cmd.Flags().Changed("uniqueness") {
		if err := flagUniqueness.Set(defaults.Uniqueness); err != nil {
			return err
		}
	}
	return nil
}

// Cmd returns the httm root command.
func Cmd() *cobra.Command {
	return rootCmd
}

// Error returns the last subcommand error, if any.
func Error() error {
	return cmdErr
}
