package cmd

import (
	"github.com/spf13/cobra"

	"railsdock/internal/aliases"
	"railsdock/internal/logger"
)

func newAliasesCmd(build appFunc) *cobra.Command {
	var (
		opts      aliases.Options
		printOnly bool
	)
	aliasesCmd := &cobra.Command{
		Use:   "aliases",
		Short: "Add railsdock shell aliases to your shell rc file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			if printOnly {
				return aliases.Print(cmd.OutOrStdout(), a.cfg.Aliases)
			}
			if a.flags.dryRun {
				logger.Info("[INFO] Would append to the rc file:\n")
				return aliases.Print(cmd.OutOrStdout(), a.cfg.Aliases)
			}
			res, err := aliases.Sync(a.cfg.Aliases, opts)
			if err != nil {
				return err
			}
			if len(res.Added) > 0 {
				logger.Success("[OK] Added %d aliases to %s. Run `source %s` to use them.\n", len(res.Added), res.RCPath, res.RCPath)
			}
			return nil
		},
	}
	aliasesCmd.Flags().StringVar(&opts.Shell, "shell", "", "Shell to configure: zsh or bash (default from config or $SHELL)")
	aliasesCmd.Flags().StringVar(&opts.RCPath, "rc-file", "", "Write to this file instead of ~/.zshrc or ~/.bashrc")
	aliasesCmd.Flags().BoolVar(&printOnly, "print", false, "Print the alias lines instead of writing them")
	return aliasesCmd
}
