package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartspend/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// initStorage already runs migrations; this command exists so
			// schema upgrades can be applied explicitly and verified.
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.SuccessStyle.Render("✓ Database schema is up to date"))
			return nil
		},
	}
}
