package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/config"
)

func newWatchCmd(a *app) *cobra.Command {
	var via string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the issuer list every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub, err := a.subscriber(via)
			if err != nil {
				return err
			}
			ctrl, err := a.controller(func(issuers []client.Issuer) {
				fmt.Fprintln(a.out, "issuers:")
				renderIssuers(a.out, issuers)
			})
			if err != nil {
				return err
			}
			if err := ctrl.ReloadIssuers(ctx); err != nil {
				return err
			}

			err = ctrl.WatchIssuerChanges(ctx, sub)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&via, "via", "sse", "signal source: sse or kafka")
	return cmd
}

func (a *app) subscriber(via string) (events.Subscriber, error) {
	switch via {
	case "sse":
		api, err := a.client()
		if err != nil {
			return nil, err
		}
		return api.IssuerEvents(), nil
	case "kafka":
		return events.NewKafkaSubscriber(config.SplitCSV(a.v.GetString("kafka-brokers")), "", a.logger), nil
	default:
		return nil, fmt.Errorf("unknown signal source %q", via)
	}
}
