package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

const getLongDesc string = `Print the value stored for a key.

Only the value is written, followed by a newline, so the output can be used
in scripts. An unset key prints an empty line. Environment overrides are not
applied; use "graphchat config list" to see them.

Examples:
  graphchat config get llm.provider
  NEO4J_URI=$(graphchat config get graph.uri)`

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             "Print a configuration value",
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := openConfiger(cmd, args[0])
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}
