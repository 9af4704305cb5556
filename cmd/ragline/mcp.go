package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/mcp"
)

func (c *cli) newMCPCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve rag_query and rag_ingest as MCP tools",
		Long: `Starts a Model Context Protocol server exposing the rag_query and
rag_ingest tools.

By default the server speaks JSON-RPC over stdio, for assistants that launch
it as a subprocess. --port serves streamable HTTP instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcp.NewServer(&mcp.Ports{Query: a.Query, Ingest: a.Ingest}, c.logger.With("component", "mcp"))
			if err != nil {
				return err
			}
			if port > 0 {
				return server.RunHTTP(cmd.Context(), fmt.Sprintf(":%d", port))
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = use stdio)")
	return cmd
}
