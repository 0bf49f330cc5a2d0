package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"railsdock/internal/tasks"
)

func newTasksCmd(build appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks available to run",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Usage: railsdock run <task> [args]")
			fmt.Fprintln(cmd.OutOrStdout())
			tasks.List(cmd.OutOrStdout(), tasks.Table(a.cfg))
			return nil
		},
	}
}

func newRunCmd(build appFunc) *cobra.Command {
	runCmd := &cobra.Command{
		Use:         "run <task> [args]",
		Short:       "Run a task from the task table with extra arguments appended",
		Annotations: ownUsage,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			table := tasks.Table(a.cfg)
			if len(args) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "Usage: railsdock run <task> [args]")
				fmt.Fprintln(cmd.ErrOrStderr())
				tasks.List(cmd.ErrOrStderr(), table)
				return usageErrorf("task name required")
			}
			if _, ok := tasks.Find(table, args[0]); !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "Unknown task %q. Available tasks:\n\n", args[0])
				tasks.List(cmd.ErrOrStderr(), table)
				return &UsageError{Err: fmt.Errorf("%w: %q", tasks.ErrUnknownTask, args[0])}
			}
			return tasks.Run(cmd.Context(), a.compose, table, args[0], args[1:])
		},
	}
	runCmd.Flags().SetInterspersed(false)
	return runCmd
}
