package main

import (
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/trezcool/manabi/storage/database"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run database migrations",
		Long: `Run a goose migration command against the configured database.

Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version, fix, create NAME [sql|go]`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := database.SetupGoose(cli.conf.Database.Engine)
			if err != nil {
				return err
			}
			return gooseRunFunc(cmd.Context(), args[0], cli.db.DB, dir, args[1:]...)
		},
	}
}
