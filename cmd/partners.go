package cmd

import (
	"context"
	"fmt"
	"time"

	"meal-admin/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var settleMonth string

var settleCmd = &cobra.Command{
	Use:   "settle PARTNER_ID",
	Short: "Generate the monthly commission settlement for a partner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("invalid partner id %q", args[0])
		}
		month := services.PreviousMonth(time.Now())
		if settleMonth != "" {
			t, err := time.Parse("2006-01", settleMonth)
			if err != nil {
				return fmt.Errorf("month must look like 2024-05: %w", err)
			}
			month = t
		}
		return withDB(cmd.Context(), func(ctx context.Context) error {
			ref, err := services.GenerateMonthlySettlement(ctx, args[0], month)
			if err != nil {
				return err
			}
			log.Info().Str("partner", args[0]).Str("month", services.SettlementMonth(month).Format("2006-01")).
				Str("reference", ref).Msg("settlement generated")
			return nil
		})
	},
}

var expireReferralsCmd = &cobra.Command{
	Use:   "expire-referrals",
	Short: "Mark pending referrals past their expiry as expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context) error {
			if err := services.ExpireOldReferrals(ctx); err != nil {
				return err
			}
			log.Info().Msg("expired referrals updated")
			return nil
		})
	},
}

func init() {
	settleCmd.Flags().StringVar(&settleMonth, "month", "", "settlement month as YYYY-MM (default: last month)")
	rootCmd.AddCommand(settleCmd, expireReferralsCmd)
}
