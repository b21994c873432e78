// Package chatcmder provides the chat command, an interactive conversation
// with the graph assistant through a running graphchat API server.
package chatcmder

import (
	"bufio"
	"context"
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

type chatCommander struct {
	apiTarget  string
	sessionID  string
	newSession bool
	configDir  string
	debug      bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	client *client.Client
	dirs   *dotdir.Manager
	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive conversation with the graph assistant.

Messages are sent to a running graphchat API server (see "graphchat serve").
The conversation is saved in the .graphchat/ directory, so it resumes where
"graphchat ask" or a previous chat left off. Use --new to start over.

Commands inside the chat:
  /clear   Delete this conversation's history and start a new one
  /exit    Quit (Ctrl+D works too)

Examples:
  graphchat chat
  graphchat chat --new --api-target http://localhost:8080`

const chatShortDesc string = "Chat with the graph assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Conversation id (default: the saved session)")
	cmd.Flags().BoolVarP(&cmder.newSession, "new", "n", false, "Start a new conversation")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.logger = logger.NewLoggerWithWriters(c.debug, os.Stderr)
	defer func() { _ = c.logger.Sync() }()

	c.client = client.New(c.apiTarget)
	c.dirs = dotdir.NewManager()

	sessionID, err := c.dirs.ResolveSession(c.sessionID, c.newSession, c.configDir)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, cliui.KeyValue("Session:", sessionID))
	fmt.Fprintln(c.out, cliui.KeyValue("Server:", c.apiTarget))
	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /clear to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/clear":
			sessionID, err = c.clear(ctx, sessionID)
			if err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			fmt.Fprintf(c.out, "  %s New conversation %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(sessionID))
			continue
		}

		reply, err := c.client.Chat(ctx, sessionID, input)
		if err != nil {
			fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		c.logger.Debug("answered",
			zap.String("rephrased", reply.RephrasedQuestion),
			zap.String("tool", reply.Tool),
		)

		fmt.Fprint(c.out, cliui.BotPrompt)
		fmt.Fprint(c.out, cliui.RenderAnswer(reply.Output))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// clear deletes the conversation on the server and starts a new saved
// session. An explicit --session is not replaced on disk.
func (c *chatCommander) clear(ctx context.Context, sessionID string) (string, error) {
	if err := c.client.ClearHistory(ctx, sessionID); err != nil {
		return sessionID, err
	}
	if c.sessionID != "" {
		return sessionID, nil
	}
	return c.dirs.ResolveSession("", true, c.configDir)
}
