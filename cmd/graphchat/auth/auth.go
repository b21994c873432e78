// Package authcmder provides the auth command for storing LLM provider API
// keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/graphchat/pkg/cliui"
	"github.com/papercomputeco/graphchat/pkg/credentials"
)

const authLongDesc string = `Store API keys for LLM providers.

Keys are stored in credentials.toml in the .graphchat/ directory. "graphchat
serve" uses a stored key when the provider's environment variable
(OPENAI_API_KEY or ANTHROPIC_API_KEY) is not set. The OpenAI key is also used
for embeddings.

Supported providers: openai, anthropic

Examples:
  graphchat auth openai              Prompt for an OpenAI API key
  graphchat auth anthropic           Prompt for an Anthropic API key
  graphchat auth --list              List stored credentials
  graphchat auth --remove openai     Remove the stored OpenAI key
  echo $KEY | graphchat auth openai  Pipe the key from stdin`

const authShortDesc string = "Store API keys for LLM providers"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			w := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(w, configDir)
			case removeFlag != "":
				return runRemove(w, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return runAuth(w, cmd.InOrStdin(), args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func runAuth(w io.Writer, in io.Reader, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(w, in, provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(used when "+credentials.EnvVarForProvider(provider)+" is unset)"),
	)
	return nil
}

func runList(w io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(w, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(w, "  Use 'graphchat auth <provider>' to store credentials.\n")
		fmt.Fprintf(w, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.KeyStyle.Render("Stored credentials"))
	for _, p := range providers {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(p),
			cliui.DimStyle.Render("→ "+credentials.EnvVarForProvider(p)),
		)
	}
	fmt.Fprintln(w)

	return nil
}

func runRemove(w io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
	return nil
}

// readAPIKey reads the first line of piped input, or prompts with hidden
// input when in is a terminal.
func readAPIKey(w io.Writer, in io.Reader, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(w, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
