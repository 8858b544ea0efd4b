package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/infrastructure/mqtt"
)

func newEventsCommand(a *app) *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print database events published on MQTT until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			log := a.logger(cfg)

			client, err := mqtt.Connect(cmd.Context(), cfg.MQTT)
			if err != nil {
				return fmt.Errorf("connecting to MQTT: %w", err)
			}
			defer client.Close() //nolint:errcheck // Best effort on exit
			client.SetLogger(log)

			topic := mqtt.Topics{}.AllEvents()
			if driver != "" {
				topic = mqtt.Topics{}.Events(driver)
			}

			// Handlers run on the paho goroutine; keep lines whole.
			var mu sync.Mutex
			err = client.Subscribe(topic, byte(cfg.MQTT.QoS), func(t string, payload []byte) error {
				mu.Lock()
				defer mu.Unlock()
				_, werr := fmt.Fprintf(a.stdout, "%s\t%s\n", t, payload)
				return werr
			})
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", topic, err)
			}
			log.Info("listening for events", "topic", topic)

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVarP(&driver, "driver", "d", "", "Only show events from this driver.")
	return cmd
}
