package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/graphchat/pkg/cliui"
	"github.com/papercomputeco/graphchat/pkg/config"
)

const listLongDesc string = `Show every configuration key, grouped by TOML section.

Each line gives the stored value and the environment variable that
overrides it at runtime.

Examples:
  graphchat config list`

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := openConfiger(cmd, "")
			if err != nil {
				return err
			}
			return writeList(cmd.OutOrStdout(), cfger)
		},
	}
}

func writeList(w io.Writer, cfger *config.Configer) error {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "%s\n", cliui.DimStyle.Render(target))
	} else {
		fmt.Fprintf(w, "%s\n", cliui.DimStyle.Render("no config.toml yet, showing defaults"))
	}

	keys := config.ValidConfigKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	section := ""
	for _, key := range keys {
		if s, _, _ := strings.Cut(key, "."); s != section {
			section = s
			fmt.Fprintf(w, "\n[%s]\n", section)
		}

		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "<not set>"
		} else {
			value = fmt.Sprintf("%q", value)
		}

		env := config.EnvVar(key)
		if fallback := config.EnvFallback(key); fallback != "" {
			env += ", " + fallback
		}
		fmt.Fprintf(w, "  %-*s = %s  %s\n", width, key, value, cliui.DimStyle.Render(env))
	}
	return nil
}
