package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/listing"
)

func newCouponsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupons",
		Short: "List and edit coupons",
	}
	cmd.AddCommand(
		newCouponsListCmd(a),
		newCouponsShowCmd(a),
		newCouponsCreateCmd(a),
		newCouponsUpdateCmd(a),
		newCouponsUseCmd(a),
		newCouponsDeleteCmd(a),
		newCouponsImageCmd(a),
		newCouponsOptionsCmd(a),
	)
	return cmd
}

type listFlags struct {
	page           int
	search         string
	names          []string
	stores         []string
	issuers        []string
	onlyUnassigned bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().StringVar(&f.search, "search", "", "match name, store or code")
	cmd.Flags().StringSliceVar(&f.names, "name", nil, "coupon name filter, repeatable")
	cmd.Flags().StringSliceVar(&f.stores, "store-name", nil, "store filter, repeatable")
	cmd.Flags().StringSliceVar(&f.issuers, "issuer", nil, "issuer email filter, repeatable")
	cmd.Flags().BoolVar(&f.onlyUnassigned, "only-unassigned", false, "only coupons without an issuer")
}

func (f *listFlags) selection() listing.FilterSelection {
	sel := listing.FilterSelection{OnlyUnassigned: f.onlyUnassigned}
	for _, n := range f.names {
		sel.CouponNames = appendUnique(sel.CouponNames, n)
	}
	for _, s := range f.stores {
		sel.Stores = appendUnique(sel.Stores, s)
	}
	for _, i := range f.issuers {
		sel.Issuers = appendUnique(sel.Issuers, i)
	}
	return sel
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func newCouponsListCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show one page of coupons",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.controller(nil)
			if err != nil {
				return err
			}
			ctrl.Restore(f.search, f.selection(), f.page)
			if err := ctrl.Refresh(contextOf(cmd)); err != nil {
				return err
			}
			renderRows(a.out, ctrl.Rows())
			fmt.Fprintf(a.out, "page %d of %d, %d coupons\n", ctrl.Page(), len(ctrl.Pages()), ctrl.Total())
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newCouponsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			c, err := api.GetCoupon(contextOf(cmd), id)
			if err != nil {
				return err
			}
			renderCoupon(a.out, *c)
			return nil
		},
	}
}

type couponFlags struct {
	name, discount, expires, store, status, code string
	price, registeredBy, paymentStatus, info     string
}

func (f *couponFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "coupon name")
	cmd.Flags().StringVar(&f.discount, "discount", "", "discount, e.g. 10%")
	cmd.Flags().StringVar(&f.expires, "expires", "", "expiration date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.store, "store-name", "", "store")
	cmd.Flags().StringVar(&f.status, "status", "", "status")
	cmd.Flags().StringVar(&f.code, "code", "", "redemption code")
	cmd.Flags().StringVar(&f.price, "price", "", "standard price")
	cmd.Flags().StringVar(&f.registeredBy, "registered-by", "", "registered by")
	cmd.Flags().StringVar(&f.paymentStatus, "payment-status", "", "payment status")
	cmd.Flags().StringVar(&f.info, "info", "", "additional info")
}

func (f *couponFlags) coupon() (client.Coupon, error) {
	c := client.Coupon{
		Name:           f.name,
		Discount:       f.discount,
		ExpirationDate: f.expires,
		Store:          f.store,
		Status:         f.status,
		Code:           f.code,
		RegisteredBy:   f.registeredBy,
		PaymentStatus:  f.paymentStatus,
		AdditionalInfo: f.info,
	}
	if f.price != "" {
		price, err := decimal.NewFromString(f.price)
		if err != nil {
			return c, fmt.Errorf("invalid price %q: %w", f.price, err)
		}
		c.StandardPrice = decimal.NewNullDecimal(price)
	}
	return c, nil
}

func newCouponsCreateCmd(a *app) *cobra.Command {
	var f couponFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a coupon in the current team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.coupon()
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			c, err := api.CreateCoupon(contextOf(cmd), a.team(), in)
			if err != nil {
				return err
			}
			renderCoupon(a.out, *c)
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("expires")
	return cmd
}

func newCouponsUpdateCmd(a *app) *cobra.Command {
	var f couponFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace every field of a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := f.coupon()
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			c, err := api.UpdateCoupon(contextOf(cmd), id, in)
			if err != nil {
				return err
			}
			renderCoupon(a.out, *c)
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("expires")
	return cmd
}

func newCouponsUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Mark a coupon used and paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			c, err := api.UseCoupon(contextOf(cmd), id)
			if err != nil {
				return err
			}
			renderCoupon(a.out, *c)
			return nil
		},
	}
}

func newCouponsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			if err := api.DeleteCoupon(contextOf(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "coupon %d deleted\n", id)
			return nil
		},
	}
}

func newCouponsImageCmd(a *app) *cobra.Command {
	var (
		size int
		path string
	)
	cmd := &cobra.Command{
		Use:   "image <id>",
		Short: "Save the QR code image of a coupon as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			png, err := api.CouponImage(contextOf(cmd), id, size)
			if err != nil {
				return err
			}
			if path == "" {
				path = fmt.Sprintf("coupon-%d.png", id)
			}
			if err := os.WriteFile(path, png, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes)\n", path, len(png))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "image size in pixels (server default when 0)")
	cmd.Flags().StringVarP(&path, "output", "o", "", "output file")
	return cmd
}

func newCouponsOptionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the coupon names, stores and issuers offered as filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.controller(nil)
			if err != nil {
				return err
			}
			// Partial failures are already notified; show what loaded.
			_ = ctrl.LoadOptions(contextOf(cmd))
			renderOptions(a.out, ctrl.Options())
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid coupon id %q", raw)
	}
	return id, nil
}
