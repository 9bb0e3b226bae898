package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/progress"
	"github.com/trezcool/manabi/core/user"
)

type commandLine struct {
	conf          *core.Config
	db            *sqlx.DB
	usrSvc        *user.Service
	enrollmentSvc *enrollment.Service
	progressSvc   *progress.Service
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manabi administration commands",
		SilenceUsage: true,
	}
	root.AddCommand(cli.migrateCmd())
	root.AddCommand(cli.addUserCmd())
	root.AddCommand(cli.reconcileCmd())
	return root
}

// run executes the command line; args exclude the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}
