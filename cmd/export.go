package cmd

import (
	"context"
	"fmt"
	"time"

	"meal-admin/csvexport"
	"meal-admin/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	exportDir   string
	exportQuery string
)

var exportCmd = &cobra.Command{
	Use:       "export {orders|payments}",
	Short:     "Write the orders or payments list to a dated CSV file",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"orders", "payments"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context) error {
			records, fields, err := exportRecords(ctx, args[0], exportQuery)
			if err != nil {
				return err
			}
			path, written, err := csvexport.WriteFile(exportDir, args[0], time.Now(), records, fields)
			if err != nil {
				return err
			}
			if !written {
				log.Warn().Str("list", args[0]).Msg("nothing to export")
				return nil
			}
			log.Info().Str("file", path).Int("rows", len(records)).Msg("export written")
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "output directory")
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "search filter, as typed in the dashboard")
	rootCmd.AddCommand(exportCmd)
}

func exportRecords(ctx context.Context, list, q string) ([]csvexport.Record, []string, error) {
	switch list {
	case "orders":
		orders, err := services.ListOrders(ctx)
		if err != nil {
			return nil, nil, err
		}
		return services.OrderExportRows(services.FilterOrders(orders, q)), services.OrderExportFields, nil
	case "payments":
		payments, err := services.ListPayments(ctx)
		if err != nil {
			return nil, nil, err
		}
		return services.PaymentExportRows(services.FilterPayments(payments, q)), services.PaymentExportFields, nil
	}
	return nil, nil, fmt.Errorf("unknown list %q", list)
}
