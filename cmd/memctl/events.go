package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/annel0/voxelmem/internal/eventbus"
)

var (
	natsURL    string
	natsStream string
	natsPrefix string
	eventTypes []string
	sessionIDs []string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Печатать события обратной связи из JetStream (JSON по строке)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
			URL:    natsURL,
			Stream: natsStream,
			Prefix: natsPrefix,
		})
		if err != nil {
			return err
		}
		defer bus.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		enc := json.NewEncoder(cmd.OutOrStdout())
		sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: eventTypes, Tenants: sessionIDs}, func(_ context.Context, ev *eventbus.Envelope) {
			fb, err := eventbus.DecodeFeedback(ev)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "событие %s: %v\n", ev.ID, err)
				return
			}
			enc.Encode(struct {
				Session string `json:"session"`
				Kind    string `json:"kind"`
				Event   any    `json:"event"`
			}{ev.Tenant, fb.Kind.String(), fb})
		})
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()

		<-ctx.Done()
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&natsURL, "nats", "nats://localhost:4222", "адрес NATS")
	eventsCmd.Flags().StringVar(&natsStream, "stream", "VOXELMEM", "имя потока JetStream")
	eventsCmd.Flags().StringVar(&natsPrefix, "subject", "voxelmem", "корень subject событий")
	eventsCmd.Flags().StringSliceVar(&sessionIDs, "session", nil, "фильтр по ID сессии")
	eventsCmd.Flags().StringSliceVar(&eventTypes, "type", nil, "фильтр по видам событий (LeverClick, RegionRegenerated...)")
}
