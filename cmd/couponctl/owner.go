package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/listing"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/localstore"
)

func newOwnerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Edit coupon owners",
	}
	cmd.AddCommand(newOwnerSetCmd(a), newOwnerDeleteCmd(a), newOwnerListCmd(a))
	return cmd
}

func newOwnerSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <owner>",
		Short: "Set the owner of a coupon",
		Long: "An issuer email assigns the coupon to that issuer on the server.\n" +
			"Any other text is kept as a local label only.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller(nil)
			if err != nil {
				return err
			}
			ctrl.StartOwnerEdit(id, strings.Join(args[1:], " "))
			return ctrl.SaveOwner(contextOf(cmd), id)
		},
	}
}

func newOwnerDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove the local owner label of a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller(nil)
			if err != nil {
				return err
			}
			return ctrl.DeleteOwner(contextOf(cmd), id)
		},
	}
}

func newOwnerListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every local owner label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.localStore()
			if err != nil {
				return err
			}
			all, err := localstore.NewOwnerOverrides(store).All(contextOf(cmd))
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(all))
			for id := range all {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

			w := newTable(a.out)
			fmt.Fprintln(w, "ID\tOWNER")
			for _, id := range ids {
				fmt.Fprintf(w, "%d\t%s\n", id, all[id])
			}
			return w.Flush()
		},
	}
}

func newBulkAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-assign <id>=<email>...",
		Short: "Assign issuers to unassigned coupons of the bulk-assign team",
		Long: "Runs only when --team equals --bulk-team. Coupons are assigned in\n" +
			"ascending id order; failures are counted and do not stop the run.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.controller(nil)
			if err != nil {
				return err
			}
			ctrl.Restore("", listing.FilterSelection{OnlyUnassigned: true}, 1)
			for _, arg := range args {
				id, email, err := parsePair(arg)
				if err != nil {
					return err
				}
				ctrl.SetOwnerDraft(id, email)
			}

			res, err := ctrl.BulkAssign(contextOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d succeeded, %d failed\n", res.Succeeded, res.Failed)
			if res.Failed > 0 {
				return errors.New("some assignments failed")
			}
			return nil
		},
	}
}

func parsePair(arg string) (int64, string, error) {
	rawID, email, ok := strings.Cut(arg, "=")
	if !ok {
		return 0, "", fmt.Errorf("expected <id>=<email>, got %q", arg)
	}
	id, err := parseID(rawID)
	if err != nil {
		return 0, "", err
	}
	return id, strings.TrimSpace(email), nil
}
