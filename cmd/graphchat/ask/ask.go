// Package askcmder provides the ask command for one-shot questions to a
// running graphchat API server.
package askcmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/api/client"
	"github.com/papercomputeco/graphchat/pkg/cliui"
	"github.com/papercomputeco/graphchat/pkg/config"
	"github.com/papercomputeco/graphchat/pkg/dotdir"
	"github.com/papercomputeco/graphchat/pkg/logger"
)

type askCommander struct {
	apiTarget  string
	sessionID  string
	newSession bool
	configDir  string
	debug      bool

	out    io.Writer
	logger *zap.Logger
}

const askLongDesc string = `Ask the graph assistant a single question.

The question is sent to a running graphchat API server (see "graphchat serve").
Follow-up questions reuse the conversation saved in the .graphchat/ directory,
so "graphchat ask" can be run repeatedly as one conversation. Use --new to
start a new conversation or --session to talk in a specific one.

Examples:
  graphchat ask "Who directed The Matrix?"
  graphchat ask "What else did they direct?"
  graphchat ask --new "Recommend a film about toys"`

const askShortDesc string = "Ask the graph assistant a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Conversation id (default: the saved session)")
	cmd.Flags().BoolVarP(&cmder.newSession, "new", "n", false, "Start a new conversation")

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command, question string) error {
	c.logger = logger.NewLoggerWithWriters(c.debug, os.Stderr)
	defer func() { _ = c.logger.Sync() }()

	sessionID, err := dotdir.NewManager().ResolveSession(c.sessionID, c.newSession, c.configDir)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}

	c.logger.Debug("asking",
		zap.String("api_target", c.apiTarget),
		zap.String("session_id", sessionID),
	)

	reply, err := client.New(c.apiTarget).Chat(cmd.Context(), sessionID, question)
	if err != nil {
		return err
	}

	c.logger.Debug("answered",
		zap.String("rephrased", reply.RephrasedQuestion),
		zap.String("tool", reply.Tool),
	)

	fmt.Fprint(c.out, cliui.RenderAnswer(reply.Output))
	return nil
}
