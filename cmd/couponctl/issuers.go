package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
)

func newIssuersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issuers",
		Short: "Manage issuers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List issuers, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				api, err := a.client()
				if err != nil {
					return err
				}
				issuers, err := api.ListIssuers(contextOf(cmd))
				if err != nil {
					return err
				}
				renderIssuers(a.out, issuers)
				return nil
			},
		},
		newIssuerWriteCmd(a, "create <email>", "Register an issuer", func(cmd *cobra.Command, api *client.Client, email string, in client.IssuerInput) (*client.Issuer, error) {
			in.Email = email
			return api.CreateIssuer(contextOf(cmd), in)
		}),
		newIssuerWriteCmd(a, "update <email>", "Change an issuer's name and phone", func(cmd *cobra.Command, api *client.Client, email string, in client.IssuerInput) (*client.Issuer, error) {
			return api.UpdateIssuer(contextOf(cmd), email, in)
		}),
		&cobra.Command{
			Use:   "delete <email>",
			Short: "Delete an issuer and its assignments",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := a.client()
				if err != nil {
					return err
				}
				if err := api.DeleteIssuer(contextOf(cmd), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "issuer %s deleted\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

type issuerWrite func(cmd *cobra.Command, api *client.Client, email string, in client.IssuerInput) (*client.Issuer, error)

func newIssuerWriteCmd(a *app, use, short string, write issuerWrite) *cobra.Command {
	var in client.IssuerInput
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			iss, err := write(cmd, api, args[0], in)
			if err != nil {
				return err
			}
			renderIssuers(a.out, []client.Issuer{*iss})
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
