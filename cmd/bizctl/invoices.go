package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"freelanceos/internal/repository"
	"freelanceos/internal/runner"
)

func invoicesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "mark-overdue",
		Short: "Run the overdue invoice check once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores := repository.NewPostgresStores(e.pool, e.log)
			n, err := runner.NewOrchestrator(stores.Invoices, e.log).CheckAndMarkOverdue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d invoice(s) overdue\n", n)
			return nil
		},
	})
	return cmd
}
