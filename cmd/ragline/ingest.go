package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

func (c *cli) newIngestCmd(appendMode bool) *cobra.Command {
	var (
		file     string
		metadata string
	)
	use, short := "ingest [text]", "Chunk, embed and store text"
	if appendMode {
		use, short = "append [text]", "Ingest text tagged with source=append"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Text comes from the argument, --file, or stdin when neither is given ("-" reads
stdin explicitly). Chunks already stored with the same metadata are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args, file)
			if err != nil {
				return err
			}
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			var res *rag.IngestResult
			switch {
			case c.remote():
				cl, err := c.client()
				if err != nil {
					return err
				}
				if appendMode {
					res, err = cl.Append(cmd.Context(), text, md)
				} else {
					res, err = cl.Ingest(cmd.Context(), text, md)
				}
				if err != nil {
					return err
				}
			default:
				a, err := c.openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()
				if appendMode {
					res, err = a.Ingest.Append(cmd.Context(), text, md)
				} else {
					res, err = a.Ingest.Ingest(cmd.Context(), text, md)
				}
				if err != nil {
					return err
				}
			}
			cmd.Printf("added %d, skipped %d\n", res.Added, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from a file")
	cmd.Flags().StringVarP(&metadata, "metadata", "m", "", `metadata JSON object, e.g. '{"source":"notes"}'`)
	return cmd
}

func readText(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("pass text or --file, not both")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	case len(args) == 1 && args[0] != "-":
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("no text given")
	}
	return string(b), nil
}
