package main

import (
	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/infra/vectorstore"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the vector store schema",
		Long: `Opens the configured store, applying any pending migrations. Every other
command migrates on open as well; this one only does that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := vectorstore.Open(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			cmd.Printf("migrated %s store at %s\n", c.cfg.Store.Driver, store.Location())
			return nil
		},
	}
}
