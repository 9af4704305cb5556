package main

import (
	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

func (c *cli) newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ingest every record of a seed file",
		Long: `Loads a JSON or YAML seed file whose root is an array and ingests each
record. Records are strings, {text, metadata} objects, or arbitrary objects
stored as JSON text. Re-seeding skips what is already stored.

With --server the server seeds from its own configured file (POST /rag/init).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.remote() {
				cl, err := c.client()
				if err != nil {
					return err
				}
				res, err := cl.Init(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("seeded %d records: added %d, skipped %d (%s)\n",
					res.Count, res.Added, res.Skipped, res.VectorStorePath)
				return nil
			}

			path := file
			if path == "" {
				path = c.cfg.RAG.SeedPath
			}
			items, err := rag.LoadSeedFile(path)
			if err != nil {
				return err
			}
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Ingest.Seed(cmd.Context(), items)
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d records: added %d, skipped %d (%s)\n",
				res.Count, res.Added, res.Skipped, a.Store.Location())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (default RAG_SEED_PATH)")
	return cmd
}
