package cmd

import (
	"context"
	"fmt"

	"meal-admin/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var promoteRole string

var promoteCmd = &cobra.Command{
	Use:   "promote USER_ID",
	Short: "Grant a user access to the admin dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		return withDB(cmd.Context(), func(ctx context.Context) error {
			ok, err := services.PromoteUserToAdmin(ctx, args[0], promoteRole)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %s could not be promoted", args[0])
			}
			log.Info().Str("user", args[0]).Str("role", promoteRole).Msg("user promoted")
			return nil
		})
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteRole, "role", services.DefaultAdminRole, "admin role to grant")
	rootCmd.AddCommand(promoteCmd)
}
