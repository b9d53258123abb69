package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"freelanceos/internal/migrate"
	"freelanceos/migrations"
)

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := migrate.Run(cmd.Context(), e.pool, migrations.FS, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}
