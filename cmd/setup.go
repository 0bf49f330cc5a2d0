package cmd

import (
	"github.com/spf13/cobra"

	"railsdock/internal/setup"
)

func newSetupCmd(build appFunc) *cobra.Command {
	var opts setup.Options

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare env files, build images, start the database and migrate",
		Long: `setup checks Docker, creates missing env files from their .example
copies, generates a new Rails application when src/Gemfile does not exist,
builds the images, starts PostgreSQL and Redis, and runs db:create and
db:migrate.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			s := &setup.Setup{
				Config:  a.cfg,
				Compose: a.compose,
				Runner:  a.run,
				Out:     a.env.stdout,
				Now:     a.env.now,
			}
			_, err = s.Run(cmd.Context(), opts)
			return err
		},
	}
	setupCmd.Flags().BoolVar(&opts.SkipBuild, "skip-build", false, "Do not rebuild images")
	return setupCmd
}
