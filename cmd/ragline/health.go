package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/client"
)

func (c *cli) newHealthCmd() *cobra.Command {
	var checkGateway bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report the vector store, models and event counters",
		Long: `Prints the vector store location and document count, the store driver,
the configured models and the event counters. --gateway also checks that the
model backends answer and fails when they do not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var h *client.Health
			if c.remote() {
				cl, err := c.client()
				if err != nil {
					return err
				}
				if h, err = cl.Health(cmd.Context(), checkGateway); err != nil {
					return err
				}
			} else {
				a, err := c.openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()
				n, err := a.Store.Count(cmd.Context())
				if err != nil {
					return err
				}
				h = &client.Health{
					OK:              true,
					VectorStorePath: a.Store.Location(),
					Documents:       n,
					IngestEvents:    a.Stats.Events(),
					DroppedEvents:   a.Bus.Dropped(),
				}
				if d, ok := a.Store.(interface{ Driver() string }); ok {
					h.Driver = d.Driver()
				}
				if gw := a.GatewayStatus(); gw != nil {
					meta := gw.ModelInfo()
					h.Models = &client.Models{Provider: meta.Provider, ChatModel: meta.ID, EmbeddingModel: meta.EmbeddingModel}
					if checkGateway {
						h.Gateway = "ok"
						if err := gw.HealthCheck(cmd.Context()); err != nil {
							h.OK, h.Gateway = false, err.Error()
						}
					}
				}
			}
			return printHealth(cmd, h)
		},
	}
	cmd.Flags().BoolVar(&checkGateway, "gateway", false, "also check the model backends")
	return cmd
}

func printHealth(cmd *cobra.Command, h *client.Health) error {
	cmd.Printf("ok: %d documents in %s\n", h.Documents, h.VectorStorePath)
	if h.Driver != "" {
		cmd.Printf("driver: %s\n", h.Driver)
	}
	if m := h.Models; m != nil {
		cmd.Printf("models: %s chat=%s embed=%s\n", m.Provider, m.ChatModel, m.EmbeddingModel)
	}
	cmd.Printf("events: %d ingests, %d dropped\n", h.IngestEvents, h.DroppedEvents)
	if h.Gateway != "" {
		cmd.Printf("gateway: %s\n", h.Gateway)
	}
	if !h.OK {
		return errors.New("unhealthy")
	}
	return nil
}
