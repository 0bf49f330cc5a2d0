package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"railsdock/internal/cleanup"
	"railsdock/internal/prompt"
	"railsdock/internal/ui"
)

func cleanupUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: railsdock cleanup [level]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range cleanup.Levels {
		fmt.Fprintf(tw, "  %s\t%s\n", l, cleanup.Describe(l))
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "help", "Show this help")
	_ = tw.Flush()
	fmt.Fprintf(w, "\nA full reset asks you to type %q.\n", cleanup.ResetPhrase)
}

func levelMenu() []string {
	rows := make([][2]string, 0, len(cleanup.Levels))
	for _, l := range cleanup.Levels {
		rows = append(rows, [2]string{string(l), cleanup.Describe(l)})
	}
	return ui.KeyValue(rows)
}

func newCleanupCmd(build appFunc) *cobra.Command {
	var confirmPhrase string

	cleanupCmd := &cobra.Command{
		Use:   "cleanup [light|medium|deep|full|db|status|help]",
		Short: "Remove Docker leftovers, from stopped containers up to a full reset",
		Long: `cleanup frees Docker resources in increasing severity. Each level runs
every step of the level below it first. Without a level an interactive menu
is shown when stdin is a terminal.`,
		Annotations: ownUsage,
		Args:        usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			var name string
			if len(args) == 1 {
				name = args[0]
			}
			if name == "help" {
				cleanupUsage(stdout)
				return nil
			}
			if name != "" {
				if _, err := cleanup.ParseLevel(name); err != nil {
					cleanupUsage(stderr)
					return &UsageError{Err: err}
				}
			}

			a, err := build()
			if err != nil {
				return err
			}
			if name == "" {
				if !a.env.isTerminal() {
					cleanupUsage(stderr)
					return usageErrorf("cleanup level required")
				}
				fmt.Fprintln(stdout, ui.Box("Cleanup levels", levelMenu()...))
				options := make([]string, 0, len(cleanup.Levels))
				for _, l := range cleanup.Levels {
					options = append(options, string(l))
				}
				name, err = a.prompter.Choose(cmd.Context(), "Select a cleanup level:", options)
				if err != nil {
					if errors.Is(err, prompt.ErrNoChoice) {
						cleanupUsage(stderr)
						return &UsageError{Err: err}
					}
					return err
				}
			}
			level, err := cleanup.ParseLevel(name)
			if err != nil {
				return &UsageError{Err: err}
			}

			c := &cleanup.Cleaner{
				Config:   a.cfg,
				Compose:  a.compose,
				Runner:   a.run,
				Prompter: a.prompter,
				Now:      a.env.now,
			}
			_, err = c.Run(cmd.Context(), level, cleanup.Options{ConfirmPhrase: confirmPhrase})
			return err
		},
	}
	cleanupCmd.Flags().StringVar(&confirmPhrase, "confirm", "", fmt.Sprintf("Supply the full reset phrase (%q) non-interactively", cleanup.ResetPhrase))
	return cleanupCmd
}
