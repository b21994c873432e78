// Package historycmder provides the history command for reading and
// clearing a conversation's saved turns.
package historycmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/graphchat/api/client"
	"github.com/papercomputeco/graphchat/pkg/cliui"
	"github.com/papercomputeco/graphchat/pkg/config"
	"github.com/papercomputeco/graphchat/pkg/dotdir"
	"github.com/papercomputeco/graphchat/pkg/utils"
)

// answerWidth caps how much of each answer "history show" prints.
const answerWidth = 160

type historyCommander struct {
	apiTarget string
	configDir string
	window    int
}

const historyLongDesc string = `Show or clear a conversation's history.

History is read from a running graphchat API server. Without a session id
the conversation saved in the .graphchat/ directory is used.

Examples:
  graphchat history show
  graphchat history show 2f7c0a4e-... --window 10
  graphchat history clear`

const historyShortDesc string = "Show or clear conversation history"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
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
	}

	def := config.Flags[config.FlagAPITarget]
	cmd.PersistentFlags().StringVarP(&cmder.apiTarget, def.Name, def.Shorthand, config.NewDefaultConfig().Client.APITarget, def.Description)

	showCmd := &cobra.Command{
		Use:   "show [session]",
		Short: "Show a conversation's recent turns, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runShow(cmd, args)
		},
	}
	showCmd.Flags().IntVarP(&cmder.window, "window", "w", 0, "Number of turns to walk back (default: server setting)")

	clearCmd := &cobra.Command{
		Use:   "clear [session]",
		Short: "Delete a conversation's turns",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runClear(cmd, args)
		},
	}

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}

// session returns the id given on the command line or the saved one.
func (c *historyCommander) session(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	state, err := dotdir.NewManager().LoadSession(c.configDir)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", errors.New("no saved conversation; pass a session id")
	}
	return state.ID, nil
}

func (c *historyCommander) runShow(cmd *cobra.Command, args []string) error {
	sessionID, err := c.session(args)
	if err != nil {
		return err
	}

	out, err := client.New(c.apiTarget).History(cmd.Context(), sessionID, c.window)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%s\n", cliui.KeyValue("Session:", sessionID))
	if out.Count == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No turns yet."))
		return nil
	}

	for i, turn := range out.Turns {
		printTurn(w, i+1, turn.CreatedAt.Format("2006-01-02 15:04:05"), string(turn.Source), turn.Input, turn.RephrasedQuestion, turn.Output)
	}
	fmt.Fprintln(w)
	return nil
}

func printTurn(w io.Writer, n int, at, source, input, rephrased, output string) {
	fmt.Fprintf(w, "\n  %s %s %s\n",
		cliui.NameStyle.Render(fmt.Sprintf("#%d", n)),
		cliui.DimStyle.Render(at),
		cliui.DimStyle.Render("via "+source),
	)
	fmt.Fprintln(w, cliui.KeyValue("Q:", utils.SingleLine(input)))
	if rephrased != "" && rephrased != input {
		fmt.Fprintln(w, cliui.KeyValue("Rephrased:", utils.SingleLine(rephrased)))
	}
	fmt.Fprintln(w, cliui.KeyValue("A:", cliui.Truncate(utils.SingleLine(output), answerWidth)))
}

func (c *historyCommander) runClear(cmd *cobra.Command, args []string) error {
	sessionID, err := c.session(args)
	if err != nil {
		return err
	}

	if err := client.New(c.apiTarget).ClearHistory(cmd.Context(), sessionID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Cleared %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(sessionID))
	return nil
}
