package cmd

import (
	"meal-admin/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), db.ApplyMigrations)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
