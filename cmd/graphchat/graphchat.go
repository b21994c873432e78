// Package graphchatcmder is the root graphchat command.
package graphchatcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/graphchat/cmd/graphchat/ask"
	authcmder "github.com/papercomputeco/graphchat/cmd/graphchat/auth"
	chatcmder "github.com/papercomputeco/graphchat/cmd/graphchat/chat"
	configcmder "github.com/papercomputeco/graphchat/cmd/graphchat/config"
	historycmder "github.com/papercomputeco/graphchat/cmd/graphchat/history"
	servecmder "github.com/papercomputeco/graphchat/cmd/graphchat/serve"
	versioncmder "github.com/papercomputeco/graphchat/cmd/version"
)

const graphchatLongDesc string = `graphchat answers questions about a Neo4j movie graph in conversation.

Each question is rephrased using the conversation so far, then answered
either by similarity search over movie plots or by a generated Cypher query.

Run the server, then talk to it:
  graphchat serve          Run the API server (with MCP on /mcp)
  graphchat ask <q>        Ask one question
  graphchat chat           Start an interactive conversation
  graphchat history show   Show the current conversation

Store provider keys with "graphchat auth" and defaults with "graphchat config".`

const graphchatShortDesc string = "graphchat - conversational Q&A over a graph"

func NewGraphchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "graphchat",
		Short:        graphchatShortDesc,
		Long:         graphchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml and the saved session (default: ./.graphchat or ~/.graphchat)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
