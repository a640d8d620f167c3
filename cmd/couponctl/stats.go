package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show coupon statistics of the current team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			st, err := api.Statistics(contextOf(cmd), a.team())
			if err != nil {
				return err
			}
			s := st.Summary
			fmt.Fprintf(a.out, "total %d, used %d, expired %d, available %d\n\n",
				s.TotalCoupons, s.UsedCoupons, s.ExpiredCoupons, s.AvailableCoupons)
			renderGroupStats(a.out, "COUPON", st.CouponStatistics, false)
			fmt.Fprintln(a.out)
			renderGroupStats(a.out, "STORE", st.StoreStatistics, true)
			return nil
		},
	}
}
