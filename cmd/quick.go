package cmd

import (
	"github.com/spf13/cobra"

	"railsdock/internal/quick"
)

func newQuickCmd(build appFunc) *cobra.Command {
	quickCmd := &cobra.Command{
		Use:   "quick <command> [args]",
		Short: "Everyday shortcuts: start, stop, logs, console, migrate, test, add_gem, shell, status",
		Long: `quick maps one word to one compose invocation. Arguments after the
command are passed through, so "railsdock quick test -v" works as expected.`,
		Annotations: ownUsage,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				quick.Usage(cmd.ErrOrStderr())
				return usageErrorf("quick command required")
			}
			name, rest := args[0], args[1:]
			if name == "help" {
				quick.Usage(cmd.OutOrStdout())
				return nil
			}
			c, ok := quick.Lookup(name)
			if !ok {
				quick.Usage(cmd.ErrOrStderr())
				return &UsageError{Err: quick.ErrUnknownCommand}
			}
			if err := c.CheckArgs(rest); err != nil {
				quick.Usage(cmd.ErrOrStderr())
				return &UsageError{Err: err}
			}

			a, err := build()
			if err != nil {
				return err
			}
			d := &quick.Dispatcher{Config: a.cfg, Compose: a.compose}
			return d.Dispatch(cmd.Context(), name, rest)
		},
	}
	// flags after the quick command belong to the wrapped tool
	quickCmd.Flags().SetInterspersed(false)
	return quickCmd
}
