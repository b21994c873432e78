package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/graphchat/pkg/cliui"
)

const setLongDesc string = `Store a value in config.toml.

The file lives in the .graphchat/ directory and is created on first use.
Numeric and duration keys are checked before anything is written.

Examples:
  graphchat config set llm.provider anthropic
  graphchat config set graph.uri neo4j://db.internal:7687
  graphchat config set vector_store.provider qdrant
  graphchat config set synthesis.round_timeout 90s
  graphchat config set embedding.dimensions 768`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Store a configuration value",
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s  %s\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(key),
				cliui.ValueStyle.Render(value),
				cliui.DimStyle.Render(cfger.GetTarget()),
			)
			return nil
		},
	}
}
