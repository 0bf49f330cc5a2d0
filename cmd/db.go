package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"railsdock/internal/backup"
	"railsdock/internal/logger"
	"railsdock/internal/ui"
)

func newManager(a *app) *backup.Manager {
	return &backup.Manager{
		Config:   a.cfg,
		Compose:  a.compose,
		Prompter: a.prompter,
		Now:      a.env.now,
		DryRun:   a.flags.dryRun,
	}
}

func newDBCmd(build appFunc) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Back up, restore and inspect the PostgreSQL database",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump the database to backups/db_backup_<timestamp>.sql",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			_, err = newManager(a).Create(cmd.Context())
			return err
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Load a dump (.sql, .gz, .bz2, .xz, .zip or .7z) into the database",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			return newManager(a).Restore(cmd.Context(), args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			list, err := newManager(a).List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				logger.Info("[INFO] No backups in %s\n", a.cfg.BackupsPath())
				return nil
			}
			now := a.env.now()
			rows := make([][]string, 0, len(list))
			for _, b := range list {
				rows = append(rows, []string{b.Name, ui.HumanSize(b.Size), ui.Age(now.Sub(b.ModTime))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"Backup", "Size", "Age"}, rows))
			return nil
		},
	}

	var olderThan string
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete backups older than --older-than",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := backup.ParseAge(olderThan)
			if err != nil {
				return &UsageError{Err: err}
			}
			a, err := build()
			if err != nil {
				return err
			}
			_, err = newManager(a).Prune(cmd.Context(), age)
			return err
		},
	}
	pruneCmd.Flags().StringVar(&olderThan, "older-than", "90d", "Minimum age of deleted backups (e.g. 90d, 36h)")

	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Open psql in the database container",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			return newManager(a).Console(cmd.Context())
		},
	}

	dbCmd.AddCommand(backupCmd, restoreCmd, listCmd, pruneCmd, consoleCmd)
	return dbCmd
}
