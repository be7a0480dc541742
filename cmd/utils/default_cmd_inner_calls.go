package utils

import "github.com/spf13/cobra"

// DefaultPersistentPreRun chains into the parent command's PersistentPreRun, so
// subcommands keep the root command's config loading without repeating it.
var DefaultPersistentPreRun = func(cmd *cobra.Command, args []string) {
	if cmd.Parent().PersistentPreRun != nil {
		cmd.Parent().PersistentPreRun(cmd.Parent(), args)
	}
}
