// Package configcmder provides the config command for managing persistent
// graphchat configuration stored in the .graphchat/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/graphchat/pkg/config"
)

const configLongDesc string = `Manage persistent graphchat configuration.

Configuration is stored as config.toml in the .graphchat/ directory and
provides default values for command flags. CLI flags and GRAPHCHAT_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  graph.uri, graph.username, graph.database,
  llm.provider, llm.model, llm.base_url,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target, vector_store.collection, vector_store.top_k,
  history.provider, history.target, history.window,
  synthesis.max_rounds, synthesis.max_attempts, synthesis.round_timeout,
  api.listen, client.api_target,
  eventstream.provider, eventstream.brokers, eventstream.topic

The Neo4j password is never stored; set NEO4J_PASSWORD or GRAPHCHAT_GRAPH_PASSWORD.

Subcommands:
  graphchat config set <key> <value>    store a value in config.toml
  graphchat config get <key>            print a stored value, for scripts
  graphchat config list                 show every key by section

Examples:
  graphchat config set llm.provider anthropic
  graphchat config set embedding.model nomic-embed-text
  graphchat config get graph.uri
  graphchat config list`

const configShortDesc string = "Manage persistent graphchat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// openConfiger loads config.toml from the directory named by --config-dir,
// after checking key when one is given.
func openConfiger(cmd *cobra.Command, key string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
