package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ragline/internal/app"
	"github.com/matiasleandrokruk/ragline/internal/client"
	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/config"
	pkgauth "github.com/matiasleandrokruk/ragline/pkg/auth"
)

// appOpener builds the in-process services. Tests swap it for a stub gateway.
type appOpener func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.App, error)

func defaultOpenApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// cli is the state shared by every command of one invocation.
type cli struct {
	open       appOpener
	configPath string
	serverURL  string
	token      string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(open appOpener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "ragline",
		Short: "Retrieval-augmented question answering over your own text",
		Long: `ragline chunks, embeds and stores text in a vector store, then answers
questions from the most similar chunks.

Commands run in-process against the configured store unless --server (or
RAG_BASE_URL with --remote) points them at a running "ragline serve".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML or TOML config file (overrides RAG_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&c.serverURL, "server", "", "base URL of a running ragline server")
	root.PersistentFlags().Bool("remote", false, "use the server at RAG_BASE_URL")
	root.PersistentFlags().StringVar(&c.token, "token", "", "bearer token for --server (minted from RAG_JWT_SECRET when empty)")

	root.AddCommand(
		c.newServeCmd(),
		c.newIngestCmd(false),
		c.newIngestCmd(true),
		c.newQueryCmd("query"),
		c.newQueryCmd("ask"),
		c.newSeedCmd(),
		c.newHealthCmd(),
		c.newMigrateCmd(),
		c.newMCPCmd(),
		c.newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads config and builds the logger before any command runs.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	path := c.configPath
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.cfg, c.logger = cfg, logger

	if remote, _ := cmd.Flags().GetBool("remote"); remote && c.serverURL == "" {
		c.serverURL = cfg.ClientBaseURL
	}
	return nil
}

func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	return c.open(ctx, c.cfg, c.logger)
}

func (c *cli) remote() bool { return c.serverURL != "" }

// client returns an HTTP client for --server, minting a short-lived token
// from the configured secret when none was given.
func (c *cli) client() (*client.Client, error) {
	token := c.token
	if token == "" && c.cfg.Auth.JWTSecret != "" {
		signer, err := pkgauth.NewSigner(c.cfg.Auth.JWTSecret, 10*time.Minute)
		if err != nil {
			return nil, err
		}
		if token, err = signer.Sign("ragline-cli", ""); err != nil {
			return nil, err
		}
	}
	return client.New(c.serverURL, token, nil), nil
}

// parseMetadata decodes a --metadata JSON object.
func parseMetadata(raw string) (rag.Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	var md rag.Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("--metadata must be a JSON object: %w", err)
	}
	if md == nil {
		return nil, errors.New("--metadata must be a JSON object")
	}
	return md, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
