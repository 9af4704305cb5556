package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/client"
	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

func (c *cli) newQueryCmd(name string) *cobra.Command {
	var (
		topK      int
		semantic  int
		keyword   int
		threshold float64
		strict    bool
		mode      string
		noAgent   bool
		filter    string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   name + " [question]",
		Short: "Answer a question from the stored text",
		Long: `Retrieves the chunks most similar to the question and answers from them.

--mode picks llm, extractive or none; --no-agent answers extractively without
calling the chat model unless --mode is set. --keyword-k merges full-text
matches with the --semantic-k vector candidates before the --top-k cut.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			flags := cmd.Flags()

			var opts rag.QueryOptions
			if flags.Changed("top-k") {
				opts.TopK = &topK
			}
			if flags.Changed("semantic-k") {
				opts.SemanticTopK = &semantic
			}
			if flags.Changed("keyword-k") {
				opts.KeywordTopK = &keyword
			}
			if flags.Changed("threshold") {
				opts.SimilarityThreshold = &threshold
			}
			if flags.Changed("strict") {
				opts.Strict = &strict
			}
			opts.AnswerMode = rag.AnswerMode(mode)
			f, err := parseMetadata(filter)
			if err != nil {
				return err
			}
			opts.Filter = f

			var useAgent *bool
			if noAgent {
				no := false
				useAgent = &no
			}

			var res *rag.QueryResult
			if c.remote() {
				cl, err := c.client()
				if err != nil {
					return err
				}
				res, err = cl.Query(cmd.Context(), question, &client.QueryConfig{QueryOptions: opts, UseAgent: useAgent})
				if err != nil {
					return err
				}
			} else {
				a, err := c.openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()
				res, err = a.Query.Query(cmd.Context(), question, opts.WithAgentPreference(useAgent))
				if err != nil {
					return err
				}
			}

			if asJSON {
				return printJSON(cmd, res)
			}
			printQueryResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", rag.DefaultTopK, "number of chunks to retrieve")
	cmd.Flags().IntVar(&semantic, "semantic-k", rag.DefaultTopK, "vector candidates before the --top-k cut")
	cmd.Flags().IntVar(&keyword, "keyword-k", 0, "full-text candidates to merge, 0 disables")
	cmd.Flags().Float64Var(&threshold, "threshold", rag.DefaultSimilarityThreshold, "minimum similarity when --strict")
	cmd.Flags().BoolVar(&strict, "strict", false, "drop chunks below --threshold")
	cmd.Flags().StringVar(&mode, "mode", "", "answer mode: llm, extractive or none")
	cmd.Flags().BoolVar(&noAgent, "no-agent", false, "answer without the chat model")
	cmd.Flags().StringVar(&filter, "filter", "", `metadata filter JSON object, e.g. '{"topic":"pets"}'`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printQueryResult(cmd *cobra.Command, res *rag.QueryResult) {
	if res.Answer != nil {
		cmd.Println(*res.Answer)
		cmd.Println()
	}
	if len(res.Documents) == 0 {
		cmd.Println("No documents matched.")
		return
	}
	cmd.Println("Sources:")
	for i, d := range res.Documents {
		src, _ := d.Metadata["source"].(string)
		if src == "" {
			src = d.ID
		}
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, src, d.Similarity)
	}
}
