package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as an issuer and keep the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			res, err := api.Login(contextOf(cmd), name, email)
			if err != nil {
				return err
			}
			sess, err := a.session()
			if err != nil {
				return err
			}
			if err := sess.Save(contextOf(cmd), res.AccessToken, res.IssuerName); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in as %s\n", res.IssuerName)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "issuer name")
	cmd.Flags().StringVar(&email, "email", "", "issuer email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			return sess.Clear(contextOf(cmd))
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var withCoupons bool
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the logged-in issuer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			p, err := api.Profile(contextOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s> %s\n", p.Name, p.Email, p.Phone)
			fmt.Fprintf(a.out, "coupons: %d total, %d active, %d expired\n", p.TotalCoupons, p.ActiveCoupons, p.ExpiredCoupons)
			if !withCoupons {
				return nil
			}

			coupons, err := api.IssuerCoupons(contextOf(cmd))
			if err != nil {
				return err
			}
			renderCoupons(a.out, coupons)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withCoupons, "coupons", false, "also list the assigned coupons")
	return cmd
}
