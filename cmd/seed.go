package cmd

import (
	"context"
	"time"

	"meal-admin/seed"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var seedOpts = seed.DefaultOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo categories, meals, customers, partners and orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context) error {
			d := seed.Generate(seedOpts, time.Now())
			bar := progressbar.Default(int64(d.Rows()), "seeding")
			defer bar.Finish()
			return seed.Insert(ctx, d, func() { _ = bar.Add(1) })
		})
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Customers, "customers", seedOpts.Customers, "number of customer profiles")
	f.IntVar(&seedOpts.Meals, "meals", seedOpts.Meals, "number of meals")
	f.IntVar(&seedOpts.Orders, "orders", seedOpts.Orders, "number of orders")
	f.IntVar(&seedOpts.Partners, "partners", seedOpts.Partners, "number of referral partners")
	f.Int64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "random seed")
	rootCmd.AddCommand(seedCmd)
}
